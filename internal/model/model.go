// Package model is the conversation engine's view of the language model
// service.
//
// The engine depends only on the Generator interface: one request in, an
// ordered list of reply parts out, each part either a text fragment or a
// function call. Part order is the model's order and must be preserved by
// implementations; the engine renders text and executes calls strictly in
// that order. Gemini (via Genkit) is the production implementation.
package model

import (
	"context"

	"github.com/andrewckor/kip-ai/internal/action"
	"github.com/andrewckor/kip-ai/internal/convo"
	"github.com/andrewckor/kip-ai/internal/page"
)

// Request is one fully assembled model call.
type Request struct {
	// Instruction is the fixed system preamble, re-derived each cycle.
	Instruction string

	// History is the persisted turn log, excluding the trailing user turn
	// that Text supersedes.
	History []convo.Turn

	// Text is the assembled context block: message, page URL, viewport
	// and serialized HTML.
	Text string

	// Image is the fresh viewport screenshot.
	Image *page.Shot
}

// Part is one element of a model reply. Exactly one field is set.
type Part struct {
	Text string
	Call *action.Call
}

// Reply is a parsed model response plus the opaque continuation state a
// Generator needs to accept function results for the same exchange.
type Reply struct {
	Parts []Part

	cont *continuation
}

// Calls returns the function calls in the reply, in model order.
func (r *Reply) Calls() []action.Call {
	var calls []action.Call
	for _, p := range r.Parts {
		if p.Call != nil {
			calls = append(calls, *p.Call)
		}
	}
	return calls
}

// Generator produces model replies.
//
// Continue feeds the outcomes of dispatched function calls back into the
// same exchange and returns the model's follow-up reply. outcomes must be
// in the same order as the calls in reply. Implementations that do not
// support continuation may return an error.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Reply, error)
	Continue(ctx context.Context, reply *Reply, outcomes []action.Outcome) (*Reply, error)
}
