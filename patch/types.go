// Package patch merges section values into a full record through RFC6902
// JSON patch operations, restricted to the pointers a section owns.
package patch

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
	OperationRemove  = "remove"
)

// Operation is a single RFC6902 operation. Value is always serialised so that
// zero values such as 0 and false survive the round trip.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}
