package models

import (
	"time"

	"github.com/google/uuid"
)

// PartyRole represents the role of a party in a case
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff"
	RoleDefendant PartyRole = "defendant"
)

// Party represents one party of a case. Plaintiffs carry an ordered,
// deduplicated set of issue tags; defendants carry entity-type and
// ownership-role attributes only.
type Party struct {
	ID            uuid.UUID `json:"id"`
	CaseID        uuid.UUID `json:"case_id"`
	Role          PartyRole `json:"role"`
	Position      int       `json:"position"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	EntityType    *string   `json:"entity_type,omitempty"`
	OwnershipRole *string   `json:"ownership_role,omitempty"`
	IssueTags     []string  `json:"issue_tags,omitempty"`
}

// FullName returns the party's display name
func (p Party) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Case is the unit of document fan-out: one property plus its parties.
// Parties are owned by the case and deleted with it.
type Case struct {
	ID              uuid.UUID  `json:"id"`
	IntakeID        *uuid.UUID `json:"intake_id,omitempty"`
	CaseNumber      string     `json:"case_number"`
	PropertyAddress string     `json:"property_address"`
	ApartmentUnit   string     `json:"apartment_unit"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zip_code"`
	FilingCounty    string     `json:"filing_county"`
	Parties         []Party    `json:"parties,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Plaintiffs returns the case's plaintiff parties in stored order
func (c *Case) Plaintiffs() []Party {
	var out []Party
	for _, p := range c.Parties {
		if p.Role == RolePlaintiff {
			out = append(out, p)
		}
	}
	return out
}

// Defendants returns the case's defendant parties in stored order
func (c *Case) Defendants() []Party {
	var out []Party
	for _, p := range c.Parties {
		if p.Role == RoleDefendant {
			out = append(out, p)
		}
	}
	return out
}
