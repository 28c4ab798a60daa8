package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalastudio/concierge/domain"
)

// fakeLlm records what reaches the upstream boundary and replays scripted
// chunks.
type fakeLlm struct {
	calls   int
	system  string
	history []domain.Message
	chunks  []domain.StreamChunk
	openErr error
}

func (f *fakeLlm) StreamChat(ctx context.Context, system string, history []domain.Message) (<-chan domain.StreamChunk, error) {
	f.calls++
	f.system = system
	f.history = history
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan domain.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestChatService(llm domain.Llm) *ChatService {
	composer := NewPromptComposer(DefaultBasePrompt, DefaultPromptRules())
	return NewChatService(llm, composer)
}

func TestChatServiceRejectsEmptyMessages(t *testing.T) {
	llm := &fakeLlm{}
	svc := newTestChatService(llm)

	_, err := svc.Stream(context.Background(), nil, "")

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, llm.calls, "no upstream call on validation failure")
}

func TestChatServiceRejectsInvalidRole(t *testing.T) {
	llm := &fakeLlm{}
	svc := newTestChatService(llm)

	_, err := svc.Stream(context.Background(), []domain.Message{
		{Role: "robot", Content: "hi"},
	}, "")

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, llm.calls)
}

func TestChatServiceTruncatesHistory(t *testing.T) {
	llm := &fakeLlm{}
	svc := newTestChatService(llm)

	messages := make([]domain.Message, 15)
	for i := range messages {
		messages[i] = domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("message %d", i)}
	}

	_, err := svc.Stream(context.Background(), messages, "")
	require.NoError(t, err)

	require.Len(t, llm.history, HistoryLimit)
	assert.Equal(t, "message 5", llm.history[0].Content)
	assert.Equal(t, "message 14", llm.history[9].Content)
}

func TestChatServiceShortHistoryUntouched(t *testing.T) {
	llm := &fakeLlm{}
	svc := newTestChatService(llm)

	messages := []domain.Message{{Role: domain.RoleUser, Content: "hello"}}
	_, err := svc.Stream(context.Background(), messages, "")
	require.NoError(t, err)
	require.Len(t, llm.history, 1)
}

func TestChatServiceComposesSystemPrompt(t *testing.T) {
	llm := &fakeLlm{}
	svc := newTestChatService(llm)

	messages := []domain.Message{{Role: domain.RoleUser, Content: "hello"}}

	_, err := svc.Stream(context.Background(), messages, "/templates/luxury")
	require.NoError(t, err)
	assert.Contains(t, llm.system, "luxury template collection")

	_, err = svc.Stream(context.Background(), messages, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultBasePrompt, llm.system)
}
