package llm

import (
	"context"
)

// Client is the single capability the pipeline needs from a text-generation
// provider: a prompt in, response text or an error out. Provider response
// shapes never cross this boundary.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
