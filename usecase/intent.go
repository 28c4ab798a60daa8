package usecase

import (
	"strings"

	"github.com/kalastudio/concierge/domain"
)

// IntentRule pairs a sales category with the keywords that signal it.
type IntentRule struct {
	Service  domain.ServiceType
	Keywords []string
}

// DefaultIntentRules is the documented keyword table behind intent
// detection. Order matters: the first rule with any match wins, so the
// narrower commerce vocabulary is checked before the generic web one.
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{domain.ServiceEcommerce, []string{
			"online store", "webshop", "web shop", "e-commerce", "ecommerce",
			"sell online", "shopping cart", "checkout", "payment",
		}},
		{domain.ServiceWebdev, []string{
			"website", "web site", "landing page", "web app", "webapp",
			"portfolio site", "redesign", "new site",
		}},
		{domain.ServiceBranding, []string{
			"logo", "brand", "branding", "visual identity", "style guide",
		}},
		{domain.ServiceMarketing, []string{
			"seo", "marketing", "google ads", "social media", "campaign",
			"newsletter",
		}},
		{domain.ServiceMaintenance, []string{
			"maintenance", "hosting", "broken", "not working", "keep it updated",
			"support plan",
		}},
	}
}

// IntentClassifier maps free text to a sales category. Pure and
// deterministic: a fixed ordered rule table, case-insensitive substring
// matching, no state.
type IntentClassifier struct {
	rules []IntentRule
}

func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	return &IntentClassifier{rules: rules}
}

// Detect returns the category of the first rule with a matching keyword,
// or ServiceUnknown.
func (c *IntentClassifier) Detect(text string) domain.ServiceType {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Service
			}
		}
	}
	return domain.ServiceUnknown
}
