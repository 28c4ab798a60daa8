package usecase

import (
	"net/url"

	"github.com/kalastudio/concierge/domain"
)

// ContactResolver builds the outbound WhatsApp deep link for a lead. Pure:
// template lookup by service type, URL-encode, compose.
type ContactResolver struct {
	number    string
	templates map[domain.ServiceType]string
	generic   string
}

func NewContactResolver(number string) *ContactResolver {
	return &ContactResolver{
		number:  number,
		generic: "Hi! I was chatting with Kala on your site and I'd like to talk about a project.",
		templates: map[domain.ServiceType]string{
			domain.ServiceWebdev:      "Hi! I'm interested in having a website built by Kala Studio.",
			domain.ServiceEcommerce:   "Hi! I'd like to talk about building an online store with Kala Studio.",
			domain.ServiceBranding:    "Hi! I'd like to talk about branding and visual identity work.",
			domain.ServiceMarketing:   "Hi! I'd like to talk about marketing for my site.",
			domain.ServiceMaintenance: "Hi! I need help maintaining an existing site.",
		},
	}
}

// ResolveContactLink renders the message template for the lead's service
// type (generic fallback for unknown) into a wa.me deep link.
func (r *ContactResolver) ResolveContactLink(lead domain.LeadContext) string {
	msg, ok := r.templates[lead.ServiceType]
	if !ok {
		msg = r.generic
	}
	return "https://wa.me/" + r.number + "?text=" + url.QueryEscape(msg)
}
