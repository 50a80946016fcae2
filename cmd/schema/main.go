// Command schema writes JSON schemas for the websocket and join protocol so
// client code can validate what it sends and receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"swarm/server/internal/net/proto"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchemas(outDir, buildSchemas()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schemas: %v\n", err)
		os.Exit(1)
	}
}

// buildSchemas reflects every protocol message, keyed by output file name.
func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	documents := []struct {
		file        string
		value       any
		title       string
		description string
	}{
		{"client_message.json", new(proto.ClientMessage), "Client Message", "Command, heartbeat or resync sent by a client over the websocket"},
		{"frame.json", new(proto.Frame), "State Frame", "Snapshot or per-tick delta of the creature population"},
		{"join_response.json", new(proto.JoinResponse), "Join Response", "Player identity and static world returned by POST /join"},
		{"command_ack.json", new(proto.CommandAck), "Command Ack", "Acknowledgement of an accepted command"},
		{"command_reject.json", new(proto.CommandReject), "Command Reject", "Refusal of a command with its reason"},
		{"heartbeat.json", new(proto.Heartbeat), "Heartbeat", "Server echo of a client heartbeat"},
	}
	schemas := make(map[string]*jsonschema.Schema, len(documents))
	for _, doc := range documents {
		schema := reflector.Reflect(doc.value)
		schema.Title = doc.title
		schema.Description = doc.description
		schemas[doc.file] = schema
	}
	return schemas
}

func writeSchemas(outDir string, schemas map[string]*jsonschema.Schema) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeSchema(filepath.Join(outDir, name), schemas[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
