package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kalastudio/concierge/domain"
)

type CompanionState string

const (
	StateIdle     CompanionState = "idle"
	StateOpened   CompanionState = "opened"
	StateAwaiting CompanionState = "awaiting_response"
)

var (
	ErrBusy    = errors.New("a submission is already awaiting its response")
	ErrNotOpen = errors.New("companion is not open")
)

// User-facing copy per failure kind. Rate limiting gets its own wording so
// the visitor knows a retry is worthwhile.
const (
	rateLimitCopy = "We're getting a lot of visitors right now. Give it a few seconds and try again."
	upstreamCopy  = "The link was disrupted for a moment. Please send that again."
)

// Gateway abstracts the chat stream source so the session logic does not
// care whether it runs in-process or behind HTTP.
type Gateway interface {
	Stream(ctx context.Context, messages []domain.Message, currentPath string) (<-chan domain.StreamChunk, error)
}

// CompanionCallbacks deliver session output to the transport. OnChunk and
// OnComplete carry the visible text with directive syntax stripped.
type CompanionCallbacks struct {
	OnChunk    func(messageID, visibleText string)
	OnComplete func(messageID, visibleText string)
	OnError    func(code, userMessage string)
}

// Companion orchestrates one visitor session: the open/submit/receive
// lifecycle, the append-only conversation, intent accumulation and
// directive execution. One goroutine (the transport's read loop) drives it;
// the mutex only guards the state word against observers.
type Companion struct {
	gateway    Gateway
	classifier *IntentClassifier
	leads      *LeadStore
	exec       *DirectiveExecutor
	cb         CompanionCallbacks

	mu          sync.Mutex
	state       CompanionState
	conv        *domain.Conversation
	currentPath string
	cancel      context.CancelFunc
}

func NewCompanion(gateway Gateway, classifier *IntentClassifier, leads *LeadStore, exec *DirectiveExecutor, cb CompanionCallbacks) *Companion {
	return &Companion{
		gateway:    gateway,
		classifier: classifier,
		leads:      leads,
		exec:       exec,
		cb:         cb,
		state:      StateIdle,
		conv:       domain.NewConversation(),
	}
}

// Open makes the companion visible. Conversation state is untouched, so
// closing and reopening resumes the same dialogue.
func (c *Companion) Open(currentPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.state = StateOpened
	}
	if currentPath != "" {
		c.currentPath = currentPath
	}
}

// Close hides the companion and aborts any in-flight request so a stale
// completion can never race into the conversation later.
func (c *Companion) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
}

func (c *Companion) SetPath(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPath = p
}

func (c *Companion) State() CompanionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Companion) Lead() domain.LeadContext {
	return c.leads.Lead()
}

func (c *Companion) Conversation() []domain.Message {
	return c.conv.Messages()
}

// Submit appends a user message and streams the assistant reply into a
// single growing assistant message. It refuses overlapping submissions and
// always leaves the session back in StateOpened, error or not. It blocks
// until the turn completes, which is the cooperative single-driver model:
// the transport's read loop is the only caller.
func (c *Companion) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	switch c.state {
	case StateAwaiting:
		c.mu.Unlock()
		return ErrBusy
	case StateIdle:
		c.mu.Unlock()
		return ErrNotOpen
	}
	user := domain.NewMessage(domain.RoleUser, text)
	c.conv.Append(user)
	c.state = StateAwaiting
	ctx, c.cancel = context.WithCancel(ctx)
	path := c.currentPath
	c.mu.Unlock()

	defer c.reopen()

	stream, err := c.gateway.Stream(ctx, c.conv.Messages(), path)
	if err != nil {
		c.fail(err)
		return nil
	}

	var assistantID string
	for chunk := range stream {
		if chunk.Err != nil {
			c.fail(chunk.Err)
			return nil
		}
		if assistantID == "" {
			assistant := domain.NewMessage(domain.RoleAssistant, "")
			c.conv.Append(assistant)
			assistantID = assistant.ID
		}
		c.conv.ExtendLast(chunk.Text)
		if c.cb.OnChunk != nil {
			last, _ := c.conv.Last()
			c.cb.OnChunk(assistantID, VisibleText(last.Content))
		}
	}

	// A cancelled stream is neither completion nor error: the visitor
	// closed the companion mid-turn, so no completion effects may fire.
	if ctx.Err() != nil {
		return nil
	}

	// Completion-time effects run exactly once per turn: intent over the
	// user message, directives over the finished assistant message.
	c.leads.Update(c.classifier.Detect(text))

	if assistantID != "" {
		last, _ := c.conv.Last()
		if err := c.exec.Execute(ctx, last.ID, ExtractDirectives(last.Content)); err != nil {
			c.fail(err)
			return nil
		}
		if c.cb.OnComplete != nil {
			c.cb.OnComplete(assistantID, VisibleText(last.Content))
		}
	}
	return nil
}

func (c *Companion) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state == StateAwaiting {
		c.state = StateOpened
	}
}

// fail appends a user-visible error message to the conversation so the
// visitor can retry; the companion never strands in StateAwaiting.
func (c *Companion) fail(err error) {
	code := "upstream_error"
	copyText := upstreamCopy
	if errors.Is(err, domain.ErrRateLimited) {
		code = "rate_limited"
		copyText = rateLimitCopy
	}
	c.conv.Append(domain.NewMessage(domain.RoleAssistant, copyText))
	if c.cb.OnError != nil {
		c.cb.OnError(code, copyText)
	}
}
