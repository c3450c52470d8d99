package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// requiredCollections must be present as JSON arrays in every snapshot payload.
var requiredCollections = []string{"courses", "classes", "students"}

// EncodeSnapshot renders s as indented JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s = NormalizeCollections(s)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot payload. The payload must be a JSON object carrying
// the courses, classes and students collections as arrays; anything else yields an
// ImportError. Element shape is not validated here, see ValidateImport.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Snapshot{}, ImportError{Reason: "payload is not a JSON object", Err: err}
	}
	for _, name := range requiredCollections {
		raw, ok := top[name]
		if !ok {
			return Snapshot{}, ImportError{Reason: fmt.Sprintf("missing %q collection", name)}
		}
		if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
			return Snapshot{}, ImportError{Reason: fmt.Sprintf("%q must be an array", name)}
		}
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, ImportError{Reason: "collections do not match the data model", Err: err}
	}
	return NormalizeCollections(s), nil
}

// NormalizeCollections replaces nil slices with empty ones so encoded snapshots always
// carry arrays rather than nulls.
func NormalizeCollections(s Snapshot) Snapshot {
	if s.Courses == nil {
		s.Courses = []Course{}
	}
	if s.Classes == nil {
		s.Classes = []Class{}
	}
	if s.Students == nil {
		s.Students = []Student{}
	}
	return s
}
