package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalastudio/concierge/domain"
)

// scriptedGateway replays one set of chunks per Submit call.
type scriptedGateway struct {
	calls   int
	history [][]domain.Message
	path    string
	turns   [][]domain.StreamChunk
	openErr error

	// when set, Submit blocks on the first chunk until released
	started  chan struct{}
	released chan struct{}

	// when set, the producer pauses after delivering the first chunk
	afterFirst chan struct{}
	resume     chan struct{}
}

func (g *scriptedGateway) Stream(ctx context.Context, messages []domain.Message, currentPath string) (<-chan domain.StreamChunk, error) {
	g.calls++
	g.history = append(g.history, messages)
	g.path = currentPath
	if g.openErr != nil {
		return nil, g.openErr
	}

	var turn []domain.StreamChunk
	if len(g.turns) > 0 {
		turn = g.turns[0]
		g.turns = g.turns[1:]
	}

	ch := make(chan domain.StreamChunk)
	go func() {
		defer close(ch)
		if g.started != nil {
			close(g.started)
			<-g.released
		}
		for i, c := range turn {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
			if i == 0 && g.afterFirst != nil {
				close(g.afterFirst)
				<-g.resume
			}
		}
	}()
	return ch, nil
}

type companionFixture struct {
	companion *Companion
	gateway   *scriptedGateway
	leads     *LeadStore
	exec      *DirectiveExecutor

	formShown []domain.LeadContext
	navigated []string
	chunks    []string
	completes []string
	errors    []string
}

func newCompanionFixture(turns ...[]domain.StreamChunk) *companionFixture {
	f := &companionFixture{
		gateway: &scriptedGateway{turns: turns},
		leads:   NewLeadStore(),
	}
	f.exec = NewDirectiveExecutor(map[domain.DirectiveKind]DirectiveHandler{
		domain.DirectiveNavigate: func(ctx context.Context, d domain.Directive) error {
			f.navigated = append(f.navigated, d.Payload)
			return nil
		},
		domain.DirectiveShowConnectForm: func(ctx context.Context, d domain.Directive) error {
			f.formShown = append(f.formShown, f.leads.Lead())
			return nil
		},
	})
	f.companion = NewCompanion(f.gateway, NewIntentClassifier(DefaultIntentRules()), f.leads, f.exec, CompanionCallbacks{
		OnChunk:    func(id, text string) { f.chunks = append(f.chunks, text) },
		OnComplete: func(id, text string) { f.completes = append(f.completes, text) },
		OnError:    func(code, msg string) { f.errors = append(f.errors, code) },
	})
	return f
}

func chunks(texts ...string) []domain.StreamChunk {
	out := make([]domain.StreamChunk, len(texts))
	for i, s := range texts {
		out[i] = domain.StreamChunk{Text: s}
	}
	return out
}

func TestCompanionSubmitRequiresOpen(t *testing.T) {
	f := newCompanionFixture(chunks("hi"))
	assert.ErrorIs(t, f.companion.Submit(context.Background(), "hello"), ErrNotOpen)
}

func TestCompanionOpenCloseLeavesConversation(t *testing.T) {
	f := newCompanionFixture(chunks("Hello!"))
	f.companion.Open("/services")

	require.NoError(t, f.companion.Submit(context.Background(), "hi"))
	require.Equal(t, 2, len(f.companion.Conversation()))

	f.companion.Close()
	assert.Equal(t, StateIdle, f.companion.State())

	f.companion.Open("")
	assert.Equal(t, StateOpened, f.companion.State())
	assert.Equal(t, 2, len(f.companion.Conversation()), "close/open keeps history")
}

func TestCompanionStreamsIntoSingleAssistantMessage(t *testing.T) {
	f := newCompanionFixture(chunks("Hel", "lo ", "there"))
	f.companion.Open("/templates/luxury")

	require.NoError(t, f.companion.Submit(context.Background(), "hi"))

	conv := f.companion.Conversation()
	require.Len(t, conv, 2)
	assert.Equal(t, domain.RoleUser, conv[0].Role)
	assert.Equal(t, "hi", conv[0].Content)
	assert.Equal(t, domain.RoleAssistant, conv[1].Role)
	assert.Equal(t, "Hello there", conv[1].Content)

	assert.Equal(t, []string{"Hel", "Hello", "Hello there"}, f.chunks)
	assert.Equal(t, []string{"Hello there"}, f.completes)
	assert.Equal(t, "/templates/luxury", f.gateway.path)
	assert.Equal(t, StateOpened, f.companion.State())
}

func TestCompanionRejectsOverlappingSubmit(t *testing.T) {
	f := newCompanionFixture(chunks("slow reply"))
	f.gateway.started = make(chan struct{})
	f.gateway.released = make(chan struct{})
	f.companion.Open("")

	done := make(chan error, 1)
	go func() {
		done <- f.companion.Submit(context.Background(), "first")
	}()

	<-f.gateway.started
	assert.Equal(t, StateAwaiting, f.companion.State())
	assert.ErrorIs(t, f.companion.Submit(context.Background(), "second"), ErrBusy)

	close(f.gateway.released)
	require.NoError(t, <-done)
	assert.Equal(t, StateOpened, f.companion.State())
	assert.Equal(t, 1, f.gateway.calls)
}

func TestCompanionUpstreamFailureReturnsToOpened(t *testing.T) {
	f := newCompanionFixture([]domain.StreamChunk{
		{Text: "partial "},
		{Err: fmt.Errorf("%w: boom", domain.ErrUpstream)},
	})
	f.companion.Open("")

	require.NoError(t, f.companion.Submit(context.Background(), "hi"))

	assert.Equal(t, StateOpened, f.companion.State(), "never stranded in awaiting")
	assert.Equal(t, []string{"upstream_error"}, f.errors)

	conv := f.companion.Conversation()
	last := conv[len(conv)-1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "disrupted")
}

func TestCompanionRateLimitDistinctCopy(t *testing.T) {
	f := newCompanionFixture([]domain.StreamChunk{
		{Err: fmt.Errorf("%w: quota", domain.ErrRateLimited)},
	})
	f.companion.Open("")

	require.NoError(t, f.companion.Submit(context.Background(), "hi"))

	assert.Equal(t, []string{"rate_limited"}, f.errors)
	conv := f.companion.Conversation()
	assert.Contains(t, conv[len(conv)-1].Content, "try again")
	assert.Equal(t, StateOpened, f.companion.State())
}

func TestCompanionGatewayOpenFailure(t *testing.T) {
	f := newCompanionFixture()
	f.gateway.openErr = fmt.Errorf("%w: connect refused", domain.ErrUpstream)
	f.companion.Open("")

	require.NoError(t, f.companion.Submit(context.Background(), "hi"))
	assert.Equal(t, StateOpened, f.companion.State())
	assert.Equal(t, []string{"upstream_error"}, f.errors)
}

func TestCompanionLeadCaptureScenario(t *testing.T) {
	// First turn: the user asks for an online store; reply is plain text.
	// Second turn: the assistant reveals the contact form.
	f := newCompanionFixture(
		chunks("We build beautiful stores."),
		chunks("Great, let's get your details. ", "[SHOW_CONNECT_FORM]"),
	)
	f.companion.Open("/services")

	require.NoError(t, f.companion.Submit(context.Background(), "I need an online store"))
	assert.Equal(t, domain.ServiceEcommerce, f.companion.Lead().ServiceType)

	require.NoError(t, f.companion.Submit(context.Background(), "yes please"))

	// The form fires exactly once, bound to the accumulated lead.
	require.Len(t, f.formShown, 1)
	assert.Equal(t, domain.ServiceEcommerce, f.formShown[0].ServiceType)

	// The rendered completion carries no directive syntax.
	assert.Equal(t, "Great, let's get your details.", f.completes[len(f.completes)-1])

	// Re-running the executor over the same message stays a no-op.
	conv := f.companion.Conversation()
	last := conv[len(conv)-1]
	require.NoError(t, f.exec.Execute(context.Background(), last.ID, ExtractDirectives(last.Content)))
	assert.Len(t, f.formShown, 1)
}

func TestCompanionCancelledTurnSkipsDirectives(t *testing.T) {
	f := newCompanionFixture(chunks("Go here [NAVIGATE: /contact]", "!"))
	f.gateway.afterFirst = make(chan struct{})
	f.gateway.resume = make(chan struct{})
	f.companion.Open("")

	done := make(chan error, 1)
	go func() {
		done <- f.companion.Submit(context.Background(), "take me there")
	}()

	<-f.gateway.afterFirst
	f.companion.Close()
	close(f.gateway.resume)
	require.NoError(t, <-done)

	// The visitor aborted the turn: no directive fires, no completion
	// callback, and the companion stays closed.
	assert.Empty(t, f.navigated)
	assert.Empty(t, f.completes)
	assert.Equal(t, StateIdle, f.companion.State())
}

func TestCompanionCancelledTurnSkipsIntentUpdate(t *testing.T) {
	f := newCompanionFixture(chunks())
	f.gateway.started = make(chan struct{})
	f.gateway.released = make(chan struct{})
	f.companion.Open("")

	done := make(chan error, 1)
	go func() {
		done <- f.companion.Submit(context.Background(), "I need an online store")
	}()

	<-f.gateway.started
	f.companion.Close()
	close(f.gateway.released)
	require.NoError(t, <-done)

	assert.Equal(t, domain.ServiceUnknown, f.companion.Lead().ServiceType)
}

func TestCompanionNavigateDirective(t *testing.T) {
	f := newCompanionFixture(chunks("Sure! ", "[NAVIGATE: /contact]"))
	f.companion.Open("")

	require.NoError(t, f.companion.Submit(context.Background(), "how do I reach you?"))

	assert.Equal(t, []string{"/contact"}, f.navigated)
	assert.Equal(t, []string{"Sure!"}, f.completes)
}

func TestCompanionPartialDirectiveNeverRendered(t *testing.T) {
	f := newCompanionFixture(chunks("On it ", "[NAVIG", "ATE: /contact]"))
	f.companion.Open("")

	require.NoError(t, f.companion.Submit(context.Background(), "take me there"))

	for _, c := range f.chunks {
		assert.NotContains(t, c, "[NAVIG")
	}
	assert.Equal(t, []string{"/contact"}, f.navigated)
}

func TestCompanionForwardsTruncatedHistoryThroughGateway(t *testing.T) {
	turns := make([][]domain.StreamChunk, 12)
	for i := range turns {
		turns[i] = chunks("ok")
	}
	f := newCompanionFixture(turns...)
	f.companion.Open("")

	for i := 0; i < 12; i++ {
		require.NoError(t, f.companion.Submit(context.Background(), fmt.Sprintf("turn %d", i)))
	}

	// The companion hands the full conversation to the gateway; bounding
	// history is the gateway's job.
	lastCall := f.gateway.history[len(f.gateway.history)-1]
	assert.Equal(t, 23, len(lastCall))
}
