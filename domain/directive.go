package domain

// DirectiveKind names a bracketed command the model may embed in its own
// text output, e.g. [NAVIGATE: /contact]. The grammar is case-sensitive.
type DirectiveKind string

const (
	DirectiveNavigate        DirectiveKind = "NAVIGATE"
	DirectiveConnectWhatsApp DirectiveKind = "CONNECT_WHATSAPP"
	DirectiveShowConnectForm DirectiveKind = "SHOW_CONNECT_FORM"
)

type Directive struct {
	Kind    DirectiveKind
	Payload string
}
