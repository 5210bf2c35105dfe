package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeID identifies a node in the visual graph. It is generated by the
// editor and only lives as long as the graph does.
type NodeID string

// ComponentID is the durable identifier of a persisted component.
type ComponentID string

// ConnectionID is the durable identifier of a persisted connection.
type ConnectionID string

// WorkflowID is the durable identifier of a workflow.
type WorkflowID string

// DocumentID identifies an uploaded document.
type DocumentID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *ComponentID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalID(b)
	*id = ComponentID(s)
	return err
}

// UnmarshalJSON accepts both string and numeric ids.
func (id *ConnectionID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalID(b)
	*id = ConnectionID(s)
	return err
}

// UnmarshalJSON accepts both string and numeric ids.
func (id *WorkflowID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalID(b)
	*id = WorkflowID(s)
	return err
}

// UnmarshalJSON accepts both string and numeric ids.
func (id *DocumentID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalID(b)
	*id = DocumentID(s)
	return err
}

// unmarshalID decodes a durable id. Some persistence backends use integer
// primary keys, so a bare JSON number is accepted and kept verbatim.
func unmarshalID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	return n.String(), nil
}
