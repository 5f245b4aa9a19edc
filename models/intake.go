package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntakeStatus represents the status of an intake record
type IntakeStatus string

const (
	IntakeStatusSubmitted IntakeStatus = "submitted"
	IntakeStatusProcessed IntakeStatus = "processed"
	IntakeStatusArchived  IntakeStatus = "archived"
)

// IssueCategoryBlock holds one category's raw issue selections as submitted.
// The stored master flag is not authoritative; the normalizer reconciles it
// from the per-issue booleans and the other/otherDetails pair.
type IssueCategoryBlock struct {
	MasterFlag   bool            `json:"master_flag"`
	Issues       map[string]bool `json:"issues"`
	Other        bool            `json:"other"`
	OtherDetails string          `json:"other_details"`
	Details      string          `json:"details"`
	FirstNoticed *time.Time      `json:"first_noticed,omitempty"`
	ReportedDate *time.Time      `json:"reported_date,omitempty"`
}

// IssueBlocks maps a category tag to its raw block
type IssueBlocks map[string]IssueCategoryBlock

// Value implements driver.Valuer for JSONB
func (b IssueBlocks) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB
func (b *IssueBlocks) Scan(value interface{}) error {
	if value == nil {
		*b = make(IssueBlocks)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*b = make(IssueBlocks)
		return nil
	}

	if len(bytes) == 0 {
		*b = make(IssueBlocks)
		return nil
	}

	return json.Unmarshal(bytes, b)
}

// IntakeRecord represents one client's habitability intake submission
type IntakeRecord struct {
	ID     uuid.UUID    `json:"id"`
	Status IntakeStatus `json:"status"`

	// Client
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	// Property
	PropertyStreetAddress string `json:"property_street_address"`
	ApartmentUnit         string `json:"apartment_unit"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	ZipCode               string `json:"zip_code"`
	FilingCounty          string `json:"filing_county"`

	// Tenancy. Rent and deposit are kept as submitted; the mapper owns
	// numeric coercion.
	MoveInDate      *time.Time `json:"move_in_date,omitempty"`
	MonthlyRent     string     `json:"monthly_rent"`
	SecurityDeposit string     `json:"security_deposit"`

	// Injury. Two source fields existed in the intake form with different
	// fallback behavior; both are carried so the mapper can surface both
	// candidates instead of silently preferring one.
	HasInjuryIssues   *bool  `json:"has_injury_issues,omitempty"`
	InjuryDescription string `json:"injury_description"`

	Issues IssueBlocks `json:"issues"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LandlordInfo is the optional landlord block attached to an intake.
// Owned by the intake and cascade-deleted with it.
type LandlordInfo struct {
	ID            uuid.UUID `json:"id"`
	IntakeID      uuid.UUID `json:"intake_id"`
	Name          string    `json:"name"`
	CompanyName   string    `json:"company_name"`
	StreetAddress string    `json:"street_address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zip_code"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}

// HouseholdMember is an additional occupant on an intake. Position is the
// submission order; member at position k becomes plaintiff k+1.
type HouseholdMember struct {
	ID           uuid.UUID  `json:"id"`
	IntakeID     uuid.UUID  `json:"intake_id"`
	Position     int        `json:"position"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Relationship string     `json:"relationship"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
}
