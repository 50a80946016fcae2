package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSchemas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schemas")
	if err := writeSchemas(dir, buildSchemas()); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		file string
		want []string
	}{
		{"client_message.json", []string{`"Client Message"`, `"creature"`, `"suicide"`}},
		{"frame.json", []string{`"creatures"`, `"king"`}},
		{"join_response.json", []string{`"world"`, `"tickRate"`}},
	}
	for _, tc := range cases {
		data, err := os.ReadFile(filepath.Join(dir, tc.file))
		if err != nil {
			t.Fatalf("read %s: %v", tc.file, err)
		}
		for _, want := range tc.want {
			if !strings.Contains(string(data), want) {
				t.Fatalf("%s missing %s", tc.file, want)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "frame.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}
}
