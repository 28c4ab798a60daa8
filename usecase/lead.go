package usecase

import "github.com/kalastudio/concierge/domain"

// LeadStore accumulates the inferred sales intent for one session. It is a
// single-writer reducer: Update is the only way the service type changes,
// and an unknown classification never erases a previously detected one.
type LeadStore struct {
	lead domain.LeadContext
}

func NewLeadStore() *LeadStore {
	return &LeadStore{lead: domain.NewLeadContext()}
}

// Update overwrites the stored service type only when detected carries a
// real intent.
func (s *LeadStore) Update(detected domain.ServiceType) {
	if detected != domain.ServiceUnknown {
		s.lead.ServiceType = detected
	}
}

// SetContact records optional contact fields from the lead-capture form.
func (s *LeadStore) SetContact(name, email string) {
	if name != "" {
		s.lead.Name = name
	}
	if email != "" {
		s.lead.Email = email
	}
}

func (s *LeadStore) Lead() domain.LeadContext {
	return s.lead
}
