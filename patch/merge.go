package patch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/tbxark/tallyentry/types"
)

var ErrNotOwned = errors.New("path is not owned by the section")

// FromValues builds replace operations for values, in pointer order. Every
// pointer must be in owned.
func FromValues(values types.Values, owned []string) ([]Operation, error) {
	allowed := make(map[string]bool, len(owned))
	for _, path := range owned {
		allowed[path] = true
	}
	paths := make([]string, 0, len(values))
	for path := range values {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	ops := make([]Operation, 0, len(paths))
	for i, path := range paths {
		if !allowed[path] {
			return nil, fmt.Errorf("operation %d: %w: %q", i, ErrNotOwned, path)
		}
		ops = append(ops, Operation{Op: OperationReplace, Path: path, Value: values[path]})
	}
	return ops, nil
}

// MergeSection overwrites the owned fields of record with values and leaves
// every other field untouched.
func MergeSection[T any](record T, values types.Values, owned []string) (T, error) {
	ops, err := FromValues(values, owned)
	if err != nil {
		return record, fmt.Errorf("merge section values: %w", err)
	}
	return ApplyRFC6902(record, ops)
}

// Extract reads the values at paths from record. Paths that do not resolve
// are omitted.
func Extract[T any](record T, paths []string) (types.Values, error) {
	raw, err := sonic.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	out := make(types.Values, len(paths))
	for _, path := range paths {
		if value, ok := lookup(doc, path); ok {
			out[path] = value
		}
	}
	return out, nil
}
