package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClientDirFrom(t *testing.T) {
	workspace := t.TempDir()
	clientDir := filepath.Join(workspace, "client")
	serverDir := filepath.Join(workspace, "server")
	for _, dir := range []string{clientDir, serverDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cases := []struct {
		name string
		base string
		ok   bool
	}{
		{"local client", workspace, true},
		{"parent client", serverDir, true},
		{"missing", t.TempDir(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := clientDirFrom(tc.base)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v (%s)", tc.ok, ok, got)
			}
			if ok && got != clientDir {
				t.Fatalf("expected %s, got %s", clientDir, got)
			}
		})
	}
}
