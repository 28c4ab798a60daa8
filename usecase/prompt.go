package usecase

import "strings"

// PromptRule pairs a path fragment with the augmentation appended to the
// base prompt when the visitor is on a matching page.
type PromptRule struct {
	Fragment     string
	Augmentation string
}

// PromptComposer builds the system prompt for a given page context. It is
// pure: same path in, same prompt out, no I/O.
type PromptComposer struct {
	base  string
	rules []PromptRule
}

func NewPromptComposer(base string, rules []PromptRule) *PromptComposer {
	return &PromptComposer{base: base, rules: rules}
}

// Compose returns the base prompt, extended with the augmentation of the
// first rule whose fragment is a substring of currentPath. Rules are
// evaluated in declaration order; no match or an empty path yields the base
// prompt unmodified.
func (p *PromptComposer) Compose(currentPath string) string {
	if currentPath == "" {
		return p.base
	}
	for _, r := range p.rules {
		if strings.Contains(currentPath, r.Fragment) {
			return p.base + "\n\n" + r.Augmentation
		}
	}
	return p.base
}

// DefaultBasePrompt is the companion persona shared by every page.
const DefaultBasePrompt = `You are Kala, the conversational concierge of Kala Studio, a web design and development studio. You chat with visitors of the marketing site, answer questions about our services (websites, online stores, branding, marketing, maintenance) and gently guide interested visitors toward getting in touch.

Keep replies short, warm and concrete. Never invent prices; invite the visitor to leave their contact instead.

You can trigger page actions by embedding these exact tokens anywhere in your reply; they are stripped before the visitor sees the text:
[NAVIGATE: /some/path] - take the visitor to a page of the site
[CONNECT_WHATSAPP] - open a WhatsApp chat with the studio
[SHOW_CONNECT_FORM] - reveal the contact form

Use at most one action per reply, and only when the visitor clearly wants it.`

// DefaultPromptRules is the page-context table, first match wins. Declared
// order matters: more specific paths come before their parents.
func DefaultPromptRules() []PromptRule {
	return []PromptRule{
		{
			Fragment:     "/templates/luxury",
			Augmentation: "The visitor is browsing the luxury template collection: high-end, editorial layouts aimed at premium brands. Mention that every luxury template ships with a bespoke typography pass and can be tailored by us.",
		},
		{
			Fragment:     "/templates",
			Augmentation: "The visitor is browsing the template gallery. Help them pick a starting point and mention that all templates can be customized by the studio.",
		},
		{
			Fragment:     "/services",
			Augmentation: "The visitor is reading the services overview. Be ready to explain the difference between a brochure site, an online store and a branding engagement.",
		},
		{
			Fragment:     "/portfolio",
			Augmentation: "The visitor is looking at past client work. Relate questions back to the case studies on this page.",
		},
		{
			Fragment:     "/contact",
			Augmentation: "The visitor is already on the contact page. Encourage them to fill the form or use [CONNECT_WHATSAPP] if they prefer chat.",
		},
	}
}
