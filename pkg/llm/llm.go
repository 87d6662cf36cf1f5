// Package llm defines the external model collaborators the conversation
// core depends on: a response generator and a preference analyzer. Both
// are opaque functions from the core's point of view; failures of the
// analyzer never fail the enclosing exchange.
package llm

import (
	"context"
	"errors"

	"github.com/synaptideco/synaptide/pkg/chat"
)

// ErrGeneration wraps failures of the response generator.
var ErrGeneration = errors.New("response generation failed")

// ErrAnalysis wraps failures of the preference analyzer.
var ErrAnalysis = errors.New("preference analysis failed")

// ChatMessage is one history item handed to the model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces an assistant reply from the full conversation
// history, oldest first.
type Generator interface {
	Generate(ctx context.Context, history []ChatMessage) (string, error)
}

// Analyzer extracts preference signals from the conversation history.
type Analyzer interface {
	Analyze(ctx context.Context, history []ChatMessage) (*chat.ProfileDelta, error)
}

// History converts a stored message log into model history items.
func History(msgs []*chat.Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
