package leads

import (
	"strings"

	"pushr/internal/pkg/validator"
	"pushr/internal/platform/models"
)

const (
	DefaultListLimit = 500
	MaxListLimit     = 5000
)

// Filter narrows ListLeads. Empty fields match everything.
type Filter struct {
	Buyer  string
	Geo    string
	Status string
	Limit  int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

type ListResult struct {
	Leads    []*models.Lead `json:"leads"`
	Total    int            `json:"total"`
	Filtered int            `json:"filtered"`
}

// Validate checks the free-form fields a landing page submits. Only the
// email format and field sizes are enforced.
func Validate(lead *models.Lead) error {
	lead.Email = strings.TrimSpace(lead.Email)
	if err := validator.Var("email", lead.Email, "omitempty,email,max=320"); err != nil {
		return err
	}
	checks := []struct {
		field string
		value string
	}{
		{"leadId", lead.LeadID},
		{"firstName", lead.FirstName},
		{"lastName", lead.LastName},
		{"phone", lead.Phone},
		{"buyer", lead.Buyer},
		{"geo", lead.Geo},
	}
	for _, c := range checks {
		if err := validator.Var(c.field, c.value, "max=200"); err != nil {
			return err
		}
	}
	return nil
}
