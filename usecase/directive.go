package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kalastudio/concierge/domain"
)

// The directive grammar carried inside assistant text. Case-sensitive, one
// regex sweep; payload capture only exists for NAVIGATE.
var directivePattern = regexp.MustCompile(`\[NAVIGATE:\s*([^\]]+)\]|\[CONNECT_WHATSAPP\]|\[SHOW_CONNECT_FORM\]`)

var directiveNames = []string{"NAVIGATE:", "CONNECT_WHATSAPP", "SHOW_CONNECT_FORM"}

// ExtractDirectives returns every directive embedded in text, in order of
// appearance. Pure, no side effects.
func ExtractDirectives(text string) []domain.Directive {
	matches := directivePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]domain.Directive, 0, len(matches))
	for _, m := range matches {
		switch {
		case m[1] != "":
			out = append(out, domain.Directive{
				Kind:    domain.DirectiveNavigate,
				Payload: strings.TrimSpace(m[1]),
			})
		case m[0] == "[CONNECT_WHATSAPP]":
			out = append(out, domain.Directive{Kind: domain.DirectiveConnectWhatsApp})
		case m[0] == "[SHOW_CONNECT_FORM]":
			out = append(out, domain.Directive{Kind: domain.DirectiveShowConnectForm})
		}
	}
	return out
}

// VisibleText strips every complete directive and any trailing not-yet-
// closed directive fragment, so the visitor never sees raw command syntax
// even while the reply is still streaming.
func VisibleText(text string) string {
	out := directivePattern.ReplaceAllString(text, "")
	out = trimOpenFragment(out)
	return strings.TrimSpace(out)
}

// trimOpenFragment cuts a trailing "[NAVIG" or "[NAVIGATE: /con" style
// fragment: an opening bracket with no closing bracket after it whose body
// is still compatible with the directive grammar. Ordinary bracketed text
// like "[1]" is left alone.
func trimOpenFragment(s string) string {
	i := strings.LastIndex(s, "[")
	if i == -1 || strings.Contains(s[i:], "]") {
		return s
	}
	body := s[i+1:]
	for _, name := range directiveNames {
		if strings.HasPrefix(name, body) || strings.HasPrefix(body, name) {
			return s[:i]
		}
	}
	return s
}

// DirectiveHandler performs the client-side effect of one directive kind.
type DirectiveHandler func(ctx context.Context, d domain.Directive) error

// DirectiveExecutor runs extracted directives at most once per message.
// Re-rendering or re-evaluating a message whose ID is already recorded is a
// no-op, so a directive can never fire twice.
type DirectiveExecutor struct {
	handlers  map[domain.DirectiveKind]DirectiveHandler
	processed map[string]struct{}
}

func NewDirectiveExecutor(handlers map[domain.DirectiveKind]DirectiveHandler) *DirectiveExecutor {
	return &DirectiveExecutor{
		handlers:  handlers,
		processed: make(map[string]struct{}),
	}
}

// Execute dispatches each directive through the handler table keyed by
// kind. The message ID is recorded before dispatch so the guarantee is
// at-most-once even when a handler fails.
func (e *DirectiveExecutor) Execute(ctx context.Context, messageID string, directives []domain.Directive) error {
	if _, done := e.processed[messageID]; done {
		return nil
	}
	e.processed[messageID] = struct{}{}

	var errs []error
	for _, d := range directives {
		handler, ok := e.handlers[d.Kind]
		if !ok {
			continue
		}
		if err := handler(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Processed reports whether a message's directives already ran.
func (e *DirectiveExecutor) Processed(messageID string) bool {
	_, done := e.processed[messageID]
	return done
}
