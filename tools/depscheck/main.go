// Command depscheck fails when the simulation core imports transport or
// process wiring packages. Run it from the module root.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Deps       []string
}

// corePackages must stay free of anything in forbiddenPrefixes.
var corePackages = []string{
	"./internal/creature/...",
	"./internal/terrain/...",
	"./internal/path/...",
	"./internal/sim/...",
	"./internal/replication/...",
}

var forbiddenPrefixes = []string{
	"swarm/server/internal/net/ws",
	"swarm/server/internal/app",
	"swarm/server/internal/render",
	"github.com/gorilla/websocket",
	"github.com/gdamore/tcell",
}

func main() {
	args := append([]string{"list", "-json"}, corePackages...)
	cmd := exec.Command("go", args...)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := findViolations(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

// findViolations decodes a stream of `go list -json` records and reports
// every core package that depends on a forbidden one.
func findViolations(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(r)
	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		for _, dep := range pkg.Deps {
			for _, prefix := range forbiddenPrefixes {
				if strings.HasPrefix(dep, prefix) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, dep))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}
