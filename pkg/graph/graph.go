package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// =============================================================================
// Serialization API
// =============================================================================

// Marshal encodes v (a Graph or Document) as indented JSON.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes v (a Graph or Document) as indented JSON to w.
func Write(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
