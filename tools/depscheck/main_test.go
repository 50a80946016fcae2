package main

import (
	"strings"
	"testing"
)

func TestFindViolations(t *testing.T) {
	stream := `{"ImportPath":"swarm/server/internal/creature","Deps":["fmt","swarm/server/logging"]}
{"ImportPath":"swarm/server/internal/sim","Deps":["github.com/gorilla/websocket","swarm/server/internal/creature"]}`

	got, err := findViolations(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0] != "swarm/server/internal/sim -> github.com/gorilla/websocket" {
		t.Fatalf("unexpected violations %v", got)
	}

	if _, err := findViolations(strings.NewReader("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
