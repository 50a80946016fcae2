package app

import (
	"os"
	"path/filepath"
)

// resolveClientDir finds a client directory next to the working directory
// or the executable. An empty result means no static assets are served.
func resolveClientDir() string {
	if cwd, err := os.Getwd(); err == nil {
		if dir, ok := clientDirFrom(cwd); ok {
			return dir
		}
	}
	if exe, err := os.Executable(); err == nil {
		if dir, ok := clientDirFrom(filepath.Dir(exe)); ok {
			return dir
		}
	}
	return ""
}

func clientDirFrom(base string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(base, "client"),
		filepath.Join(base, "..", "client"),
	} {
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		return abs, true
	}
	return "", false
}
