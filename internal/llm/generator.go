// Package llm provides clients for chat-completion language models. The
// server depends only on the Generator interface so answer and quiz flows can
// be tested without a live model.
package llm

import "context"

// Generator produces a completion for a system prompt and a user prompt. The
// returned string is raw model output; structured extraction happens in the
// parse package.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Close() error
}
