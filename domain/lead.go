package domain

// ServiceType is the closed set of sales categories the companion can infer
// from a conversation. ServiceUnknown is the sentinel for "no intent yet".
type ServiceType string

const (
	ServiceWebdev      ServiceType = "webdev"
	ServiceEcommerce   ServiceType = "ecommerce"
	ServiceBranding    ServiceType = "branding"
	ServiceMarketing   ServiceType = "marketing"
	ServiceMaintenance ServiceType = "maintenance"
	ServiceUnknown     ServiceType = "unknown"
)

// LeadContext accumulates what the companion has inferred about a visitor's
// sales intent. It lives for one session only.
type LeadContext struct {
	ServiceType ServiceType `json:"service_type"`
	Name        string      `json:"name,omitempty"`
	Email       string      `json:"email,omitempty"`
}

func NewLeadContext() LeadContext {
	return LeadContext{ServiceType: ServiceUnknown}
}
