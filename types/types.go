package types

// SectionID names one page of the data-entry form.
type SectionID string

// Status is the overall status of a data-entry session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSaving     Status = "saving"
	StatusDeleting   Status = "deleting"
	StatusDeleted    Status = "deleted"
	StatusFinalising Status = "finalising"
	StatusFinalised  Status = "finalised"
	StatusAborted    Status = "aborted"
)

// IsTerminal reports whether no further edits are accepted in the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDeleted, StatusFinalised, StatusAborted:
		return true
	default:
		return false
	}
}

// IsOneShot reports whether the status belongs to a finishing operation that
// navigation must never interrupt.
func (s Status) IsOneShot() bool {
	switch s {
	case StatusDeleted, StatusAborted, StatusFinalising, StatusFinalised:
		return true
	default:
		return false
	}
}

// ValidationResult is a single finding computed by the remote store.
// Fields are JSON pointers into the record.
type ValidationResult struct {
	Code   string   `json:"code"`
	Fields []string `json:"fields"`
}

type ValidationResults struct {
	Errors   []ValidationResult `json:"errors"`
	Warnings []ValidationResult `json:"warnings"`
}

func (r ValidationResults) IsEmpty() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// ClientState is the serialisable intent of a form state. The remote store
// keeps it verbatim and returns it on the next claim.
type ClientState struct {
	Furthest                  SectionID   `json:"furthest"`
	Current                   SectionID   `json:"current"`
	AcceptedErrorsAndWarnings []SectionID `json:"acceptedErrorsAndWarnings"`
	Continue                  bool        `json:"continue"`
}

// Values holds field values keyed by JSON pointer.
type Values map[string]any

func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
