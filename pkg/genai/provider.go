package genai

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one entry of a conversation sent to the model.
type Turn struct {
	Content string
	Role    string
}

// StreamChunk is one increment of a streamed generation. Err is set on
// the final chunk when the stream failed partway.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Generator produces model responses for a conversation.
type Generator interface {
	Generate(ctx context.Context, turns []*Turn) (string, error)
	// GenerateStream returns a channel of incremental chunks. The channel
	// is closed after the chunk with Done or Err set.
	GenerateStream(ctx context.Context, turns []*Turn) (<-chan StreamChunk, error)
}
