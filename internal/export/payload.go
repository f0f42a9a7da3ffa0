package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaVersion tags every payload and journal record.
const SchemaVersion = "replay-export/v1"

const payloadSchemaURL = "mem://mission-director/replay-export-v1.json"

const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schemaVersion", "missionId", "digest", "seedVersion", "timestamp",
               "modules", "contributorId", "heat", "performanceScore", "tier"],
  "additionalProperties": false,
  "properties": {
    "schemaVersion":    {"const": "replay-export/v1"},
    "missionId":        {"type": "string", "minLength": 1},
    "digest":           {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "seedVersion":      {"type": "string", "minLength": 1},
    "timestamp":        {"type": "integer"},
    "modules":          {"type": "array", "items": {"type": "string"}},
    "contributorId":    {"type": "string"},
    "heat":             {"type": "number", "minimum": 0},
    "performanceScore": {"type": "number", "minimum": 0, "maximum": 1},
    "tier":             {"type": "string", "minLength": 1},
    "signature":        {"type": "string"}
  }
}`

// #region payload

// Payload is the wire form of an Item. Field names are part of the ledger
// contract; change SchemaVersion when they change.
type Payload struct {
	SchemaVersion    string   `json:"schemaVersion"`
	MissionID        string   `json:"missionId"`
	Digest           string   `json:"digest"`
	SeedVersion      string   `json:"seedVersion"`
	Timestamp        int64    `json:"timestamp"`
	Modules          []string `json:"modules"`
	ContributorID    string   `json:"contributorId"`
	Heat             float64  `json:"heat"`
	PerformanceScore float64  `json:"performanceScore"`
	Tier             string   `json:"tier"`
	Signature        string   `json:"signature,omitempty"`
}

// PayloadOf converts an item to its wire form.
func PayloadOf(it Item) Payload {
	modules := append([]string{}, it.Modules...)
	return Payload{
		SchemaVersion:    SchemaVersion,
		MissionID:        it.MissionID,
		Digest:           it.Digest,
		SeedVersion:      it.SeedVersion,
		Timestamp:        it.Timestamp,
		Modules:          modules,
		ContributorID:    it.ContributorID,
		Heat:             it.Heat,
		PerformanceScore: it.PerformanceScore,
		Tier:             it.Tier,
		Signature:        it.Signature,
	}
}

// Item converts a payload back into an item carrying the given id.
func (p Payload) Item(id string) Item {
	return Item{
		ID:               id,
		MissionID:        p.MissionID,
		Digest:           p.Digest,
		SeedVersion:      p.SeedVersion,
		Timestamp:        p.Timestamp,
		Modules:          append([]string(nil), p.Modules...),
		ContributorID:    p.ContributorID,
		Heat:             p.Heat,
		PerformanceScore: p.PerformanceScore,
		Tier:             p.Tier,
		Signature:        p.Signature,
	}
}

// #endregion payload

// #region codec

// EncodePayload marshals and validates a payload.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := ValidatePayload(data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodePayload validates raw JSON and unmarshals it.
func DecodePayload(data []byte) (Payload, error) {
	if err := ValidatePayload(data); err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// ValidatePayload checks raw JSON against the embedded payload schema.
func ValidatePayload(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("payload json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload schema: %w", err)
	}
	return nil
}

var (
	schemaOnce sync.Once
	schemaVal  *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(payloadSchemaURL, strings.NewReader(payloadSchema)); err != nil {
			schemaErr = fmt.Errorf("add payload schema: %w", err)
			return
		}
		schemaVal, schemaErr = compiler.Compile(payloadSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile payload schema: %w", schemaErr)
		}
	})
	return schemaVal, schemaErr
}

// #endregion codec
