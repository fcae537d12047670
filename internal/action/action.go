// Package action implements the registry of page actions the model can
// invoke through function calling.
//
// The registry is a fixed, statically declared set: highlight an element and
// remove the active highlight. Each action carries a name, a natural
// language description, and a JSON schema for its single selector parameter.
// Dispatch is name-keyed and synchronous; the engine calls it one function
// call at a time, in the order the model returned them.
package action

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Action names as declared to the model.
const (
	// HighlightName highlights a target element and starts interaction
	// observation.
	HighlightName = "highlightPageElement"

	// RemoveHighlightName clears the active highlight and stops
	// interaction observation.
	RemoveHighlightName = "removeActiveHighlight"
)

// HighlightParams is the input schema for highlightPageElement. Both schema
// tag dialects are carried: jsonschema for the prompt-facing declarations,
// jsonschema_description for Genkit tool registration.
type HighlightParams struct {
	Selector string `json:"selector" jsonschema:"The CSS selector or ID of the element to highlight (e.g., '#email' or '.submit-button')" jsonschema_description:"The CSS selector or ID of the element to highlight (e.g., '#email' or '.submit-button')"`
}

// RemoveHighlightParams is the input schema for removeActiveHighlight. The
// selector is ignored; it exists because the function-calling schema
// requires at least one parameter.
type RemoveHighlightParams struct {
	Selector string `json:"selector" jsonschema:"The selector parameter is ignored but required by the API for consistency" jsonschema_description:"The selector parameter is ignored but required by the API for consistency"`
}

// Call is one function call as returned by the model.
type Call struct {
	Name string
	Args map[string]any
}

// Outcome is the machine-readable result of dispatching one Call. Result is
// always a plain string; failures degrade to diagnostic strings rather than
// errors because an unresolved selector must never abort the cycle.
type Outcome struct {
	Name   string
	Result string
}

// Declaration describes one action for prompt rendering and tool
// registration.
type Declaration struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}
