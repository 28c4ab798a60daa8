package domain

import "context"

// StreamChunk is one increment of a model reply. A chunk with Err set is
// terminal; the producer closes the channel after it.
type StreamChunk struct {
	Text string
	Err  error
}

// Llm abstracts a streaming chat/LLM provider.
type Llm interface {
	// StreamChat sends the history with a system prompt and emits the reply
	// incrementally on the returned channel. The channel is closed when the
	// reply is complete or after a terminal error chunk. Cancelling ctx
	// stops the stream.
	StreamChat(ctx context.Context, system string, history []Message) (<-chan StreamChunk, error)
}
