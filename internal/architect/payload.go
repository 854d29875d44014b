package architect

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/m3rciful/archbot/core/telegram/format"
)

// StyleNotSelected is reported when the mini-app sent no style.
const StyleNotSelected = "not selected"

var errNotObject = errors.New("payload is not a JSON object")

// Selection is the mini-app submission. Unknown fields are ignored.
type Selection struct {
	Style *string `json:"style"`
}

// StyleOrDefault returns the chosen style or StyleNotSelected.
func (s Selection) StyleOrDefault() string {
	return format.DerefString(s.Style, StyleNotSelected)
}

// DisplayStyle is the capitalized style shown back to the user.
func (s Selection) DisplayStyle() string {
	return format.Capitalize(s.StyleOrDefault())
}

// DecodeError reports a mini-app payload that is not a JSON object with an
// optional string "style". Raw keeps the unparsed body for diagnostics.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return "architect: decode web app data: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeSelection parses a mini-app payload.
func DecodeSelection(raw string) (Selection, error) {
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return Selection{}, &DecodeError{Raw: raw, Err: errNotObject}
	}
	var sel Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return Selection{}, &DecodeError{Raw: raw, Err: err}
	}
	return sel, nil
}
