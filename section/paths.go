package section

import (
	"reflect"
	"strings"
)

// LeafPointers returns the JSON pointers of every scalar field of T, each
// prefixed with prefix. Slices and maps are skipped: their element pointers
// depend on runtime lengths and have to be listed explicitly.
func LeafPointers[T any](prefix string) []string {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return []string{}
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return []string{prefix}
	}

	paths := make([]string, 0)
	visited := make(map[reflect.Type]bool)
	collectLeaves(typ, prefix, &paths, visited)
	return paths
}

func collectLeaves(typ reflect.Type, prefix string, paths *[]string, visited map[reflect.Type]bool) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if visited[typ] {
		return
	}

	switch typ.Kind() {
	case reflect.Struct:
		visited[typ] = true
		defer func() { delete(visited, typ) }()

		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			jsonName := jsonFieldName(field)
			if jsonName == "" || jsonName == "-" {
				continue
			}
			collectLeaves(field.Type, prefix+"/"+escapePointerToken(jsonName), paths, visited)
		}
	case reflect.Slice, reflect.Array, reflect.Map:
	default:
		*paths = append(*paths, prefix)
	}
}

func jsonFieldName(field reflect.StructField) string {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return field.Name
	}
	parts := strings.Split(jsonTag, ",")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return field.Name
}

func escapePointerToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// parentPointers lists the proper ancestors of a pointer, nearest last:
// "/a/b/c" yields "/a" and "/a/b".
func parentPointers(path string) []string {
	if !strings.HasPrefix(path, "/") {
		return nil
	}
	var parents []string
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			parents = append(parents, path[:i])
		}
	}
	return parents
}
