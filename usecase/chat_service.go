package usecase

import (
	"context"
	"fmt"

	"github.com/kalastudio/concierge/domain"
)

// HistoryLimit bounds how much history is forwarded upstream per turn.
// This is a hard design invariant, not a per-call tunable.
const HistoryLimit = 10

// ChatService is the gateway core shared by the HTTP and websocket
// transports: validate, truncate, compose the contextual system prompt,
// stream the model reply. It holds no per-request state, so it is safe
// under arbitrary concurrent invocations.
type ChatService struct {
	llm      domain.Llm
	composer *PromptComposer
}

func NewChatService(llm domain.Llm, composer *PromptComposer) *ChatService {
	return &ChatService{llm: llm, composer: composer}
}

// Stream validates messages, trims them to the most recent HistoryLimit
// entries and opens the upstream stream with the page-contextual system
// prompt.
func (s *ChatService) Stream(ctx context.Context, messages []domain.Message, currentPath string) (<-chan domain.StreamChunk, error) {
	if len(messages) == 0 {
		return nil, domain.NewValidationError("messages must be a non-empty array")
	}
	for i, m := range messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant && m.Role != domain.RoleSystem {
			return nil, domain.NewValidationError(fmt.Sprintf("messages[%d] has invalid role %q", i, m.Role))
		}
	}

	trimmed := messages
	if len(trimmed) > HistoryLimit {
		trimmed = trimmed[len(trimmed)-HistoryLimit:]
	}

	system := s.composer.Compose(currentPath)
	return s.llm.StreamChat(ctx, system, trimmed)
}
