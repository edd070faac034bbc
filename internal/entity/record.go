package entity

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/groundskeeper/internal/rules"
	"github.com/solatis/groundskeeper/internal/types"
)

// Record is a schemaless subject decoded from a JSON payload.
// Nested objects are returned as Records so dotted paths walk them. Like the
// typed entities, an empty string reads as absent.
type Record map[string]any

// Field implements rules.FieldSource.
func (r Record) Field(name string) any {
	switch v := r[name].(type) {
	case nil:
		return nil
	case string:
		return str(v)
	case map[string]any:
		return Record(v)
	default:
		return v
	}
}

// ParseRecord decodes a JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("decode entity: expected a JSON object")
	}
	return Record(m), nil
}

type bound struct {
	rules.FieldSource
	ref types.AssignableRef
}

func (b bound) Ref() types.AssignableRef { return b.ref }

// Bind attaches an assignable reference to any field source.
func Bind(ref types.AssignableRef, src rules.FieldSource) Entity {
	return bound{FieldSource: src, ref: ref}
}
