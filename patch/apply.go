package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

func ApplyRFC6902[T any](current T, ops []Operation) (T, error) {
	var zero T

	if len(ops) == 0 {
		return current, nil
	}

	currentJSON, err := sonic.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal current state: %w", err)
	}

	ops = FixOperation(currentJSON, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal patch operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return zero, fmt.Errorf("failed to decode patch: %w", err)
	}

	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return zero, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result T
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return zero, fmt.Errorf("type mismatch: patch would result in invalid record: %w", err)
	}

	return result, nil
}

// FixOperation turns replaces of missing paths into adds, drops removes of
// missing paths, and creates missing parent objects for adds.
func FixOperation(currentJSON []byte, ops []Operation) []Operation {
	var doc any
	if err := sonic.Unmarshal(currentJSON, &doc); err != nil {
		return ops
	}

	created := make(map[string]bool)
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace, OperationAdd:
			for _, parent := range missingParents(doc, op.Path) {
				if created[parent] {
					continue
				}
				created[parent] = true
				fixed = append(fixed, Operation{Op: OperationAdd, Path: parent, Value: map[string]any{}})
			}
			if op.Op == OperationReplace && !pathExists(doc, op.Path) && !created[op.Path] {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if pathExists(doc, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}

	return fixed
}

func splitPointer(path string) ([]string, bool) {
	if path == "" {
		return nil, true
	}
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	tokens := strings.Split(path[1:], "/")
	for i, token := range tokens {
		token = strings.ReplaceAll(token, "~1", "/")
		tokens[i] = strings.ReplaceAll(token, "~0", "~")
	}
	return tokens, true
}

func lookup(doc any, path string) (any, bool) {
	tokens, ok := splitPointer(path)
	if !ok {
		return nil, false
	}
	cur := doc
	for _, token := range tokens {
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return nil, false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			cur = node[index]
		default:
			return nil, false
		}
	}
	return cur, true
}

func pathExists(doc any, path string) bool {
	_, ok := lookup(doc, path)
	return ok
}

// missingParents lists the object ancestors of path that are absent or null,
// outermost first. Array ancestors are never created.
func missingParents(doc any, path string) []string {
	tokens, ok := splitPointer(path)
	if !ok || len(tokens) < 2 {
		return nil
	}
	var missing []string
	prefix := ""
	for _, token := range tokens[:len(tokens)-1] {
		prefix += "/" + escapeToken(token)
		value, ok := lookup(doc, prefix)
		if ok && value != nil {
			continue
		}
		if _, err := strconv.Atoi(token); err == nil {
			return missing
		}
		missing = append(missing, prefix)
	}
	return missing
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
