// Package intent turns a raw utterance into a structured intent against the
// listing the user last heard.
package intent

type Kind string

const (
	SelectNumber Kind = "SELECT_NUMBER"
	Repeat       Kind = "REPEAT"
	GoBack       Kind = "GO_BACK"
	Confirm      Kind = "CONFIRM"
	Edit         Kind = "EDIT"
	Redirect     Kind = "REDIRECT"
	Cancel       Kind = "CANCEL"
	Unrecognized Kind = "UNRECOGNIZED"
)

// Intent is the resolved meaning of one utterance. Built fresh per turn,
// consumed by the state machine, never persisted.
type Intent struct {
	Kind     Kind
	Number   int
	FreeText string
}
