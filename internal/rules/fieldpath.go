// internal/rules/fieldpath.go
package rules

import (
	"strings"

	"github.com/solatis/groundskeeper/internal/types"
)

/*
 * Field path resolution for rule subjects.
 *
 * Rules name the attribute they test with a field path. A path without dots
 * reads one attribute; a dotted path walks relations (organization.industry,
 * person.organization.address.country) to arbitrary depth, bounded by
 * MaxPathDepth.
 *
 * Entities expose attributes through FieldSource. Relations are returned as
 * another FieldSource, so traversal never needs reflection. Plain
 * map[string]any values are walked as well, which lets JSON payloads nest
 * without wrapping every level.
 *
 * Missing attributes, nil relations and scalars with a path continuing past
 * them all resolve to nil. Resolution never fails: nil flows into the
 * operator and most operators treat it as a non-match.
 */

// FieldSource is anything territory rules can be evaluated against.
// Field returns nil for unknown names; relations return another FieldSource
// or nil when the relation is not loaded.
type FieldSource interface {
	Field(name string) any
}

// FieldSourceFunc adapts a function to FieldSource.
type FieldSourceFunc func(name string) any

// Field implements FieldSource.
func (f FieldSourceFunc) Field(name string) any {
	return f(name)
}

// SplitPath splits a dotted field path into segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// ResolveField returns the value at path, or nil when any segment is absent.
func ResolveField(src FieldSource, path string) any {
	return resolveSegments(src, SplitPath(path))
}

// resolveSegments walks pre-split segments. Compiled rules call this directly
// so the path is split once per rule instead of once per evaluation.
func resolveSegments(src FieldSource, segments []string) any {
	if src == nil || len(segments) == 0 || len(segments) > types.MaxPathDepth {
		return nil
	}

	var current any = src
	for _, seg := range segments {
		switch v := current.(type) {
		case FieldSource:
			current = v.Field(seg)
		case map[string]any:
			current = v[seg]
		default:
			// Scalar value but path continues
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}
