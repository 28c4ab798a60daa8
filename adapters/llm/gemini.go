package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"google.golang.org/genai"

	"github.com/kalastudio/concierge/domain"
)

// Generation parameters are fixed by design: a moderate temperature and a
// bounded reply length for a chat widget.
const (
	temperature     float32 = 0.7
	maxOutputTokens int32   = 1000
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(
		ctx,
		&genai.ClientConfig{
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Model() string {
	return g.model
}

// StreamChat forwards the history with the system prompt and relays reply
// tokens as they arrive. The returned channel closes on completion or after
// one terminal error chunk.
func (g *GeminiClient) StreamChat(ctx context.Context, system string, history []domain.Message) (<-chan domain.StreamChunk, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleModel
		if msg.Role == domain.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role: role,
			Parts: []*genai.Part{
				{Text: msg.Content},
			},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   maxOutputTokens,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		relay(ctx, g.client.Models.GenerateContentStream(ctx, g.model, contents, config), out)
	}()
	return out, nil
}

// relay forwards upstream responses as chunks. Every send, the terminal
// error included, selects on ctx.Done so an abandoned consumer can never
// strand the producer goroutine.
func relay(ctx context.Context, responses iter.Seq2[*genai.GenerateContentResponse, error], out chan<- domain.StreamChunk) {
	for resp, err := range responses {
		if err != nil {
			select {
			case out <- domain.StreamChunk{Err: classify(err)}:
			case <-ctx.Done():
			}
			return
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		select {
		case out <- domain.StreamChunk{Text: text}:
		case <-ctx.Done():
			return
		}
	}
}

// classify maps provider errors onto the domain taxonomy so callers never
// branch on genai types.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}
