package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tenantdocs-backend/models"

	"go.uber.org/zap"
)

// FlatDocFields is the flat key/value schema the document templates expect.
// Values are strings, ints, or bools. A key is either present with a real
// value or absent; mapping never emits empty-string placeholders, so the
// renderer can distinguish "not provided" from "explicitly blank".
type FlatDocFields map[string]interface{}

// maxPlaintiffSlots is the number of plaintiff key families the template
// schema declares. Household members beyond the last slot are reported as
// warnings, not mapped.
const maxPlaintiffSlots = 5

// plaintiffFieldNames is the per-plaintiff key family
var plaintiffFieldNames = []string{
	"firstname",
	"lastname",
	"fullname",
	"email",
	"phone",
	"date-of-birth",
}

// scalarTemplateFields are the non-plaintiff, non-issue target keys
var scalarTemplateFields = []string{
	"property-address",
	"apartment-unit",
	"city",
	"state",
	"zip-code",
	"filing-county",
	"move-in-date",
	"monthly-rent",
	"security-deposit",
	"landlord-name",
	"landlord-company",
	"landlord-address",
	"landlord-city",
	"landlord-state",
	"landlord-zip",
	"landlord-phone",
	"landlord-email",
	"attorney-name",
	"attorney-bar-number",
	"attorney-firm",
	"attorney-email",
	"case-number",
	"document-date",
	"injury-claimed",
}

// excludedIssueTags are taxonomy tags the current template revision has no
// field for. This is a versioned allowlist decision: active tags outside
// the template field set are dropped with a warning, never an error.
var excludedIssueTags = map[string]struct{}{
	"structural/railing-broken":         {},
	"appliance/garbage-disposal-broken": {},
	"security/broken-mailbox":           {},
	"pest/other-insects":                {},
}

// templateFieldSet is the full target schema, built once at init. Every key
// the mapper emits must be a member; the key builders are validated against
// it in tests.
var templateFieldSet = buildTemplateFieldSet()

func buildTemplateFieldSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range scalarTemplateFields {
		set[f] = struct{}{}
	}
	for n := 1; n <= maxPlaintiffSlots; n++ {
		for _, f := range plaintiffFieldNames {
			set[plaintiffKey(n, f)] = struct{}{}
		}
	}
	for _, category := range categoryOrder {
		for _, issue := range categoryIssueKeys[category] {
			if _, excluded := excludedIssueTags[IssueTag(category, issue)]; excluded {
				continue
			}
			set[issueKey(category, issue)] = struct{}{}
		}
	}
	return set
}

// plaintiffKey builds a "plaintiff-{n}-{field}" target key
func plaintiffKey(n int, field string) string {
	return fmt.Sprintf("plaintiff-%d-%s", n, field)
}

// issueKey builds an "issue-{category}-{issue}" target key
func issueKey(category, issue string) string {
	return fmt.Sprintf("issue-%s-%s", category, issue)
}

// CaseMeta carries the generation-time context the intake record itself
// does not hold.
type CaseMeta struct {
	CaseNumber   string
	DocType      string
	DocumentDate *time.Time
	AttorneyKey  string
}

// InjuryCandidates surfaces both historical derivations of the injury flag.
// The two source fields disagreed in the original form logic; the mapper
// does not pick a winner, it reports both.
type InjuryCandidates struct {
	FromFlag      *bool `json:"from_flag,omitempty"`
	FromNarrative *bool `json:"from_narrative,omitempty"`
}

// Resolved returns the agreed value, or nil when the candidates diverge or
// neither is present.
func (c InjuryCandidates) Resolved() *bool {
	if c.FromFlag == nil {
		return c.FromNarrative
	}
	if c.FromNarrative == nil {
		return c.FromFlag
	}
	if *c.FromFlag == *c.FromNarrative {
		return c.FromFlag
	}
	return nil
}

// MappingResult is the mapper's output: the flat field map plus the
// coverage metric callers use to flag low-coverage mappings for review.
type MappingResult struct {
	Fields   FlatDocFields
	Coverage float64
	Warnings []string
	Injury   InjuryCandidates

	consumed int
	mappable int
}

// FieldMapper maps a normalized intake record to the flat template schema.
// Deterministic and total over well-formed input: a missing optional source
// field omits its target key, it never fails the mapping.
type FieldMapper struct {
	attorneys *AttorneyDirectory
	logger    *zap.Logger
}

// NewFieldMapper creates a field mapper with the injected attorney directory
func NewFieldMapper(attorneys *AttorneyDirectory, logger *zap.Logger) *FieldMapper {
	if attorneys == nil {
		attorneys = DefaultAttorneyDirectory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldMapper{attorneys: attorneys, logger: logger}
}

// Map transforms an intake record, its optional landlord block, and its
// household members into the flat key/value schema for caseMeta's template.
func (m *FieldMapper) Map(
	intake *models.IntakeRecord,
	landlord *models.LandlordInfo,
	members []models.HouseholdMember,
	meta CaseMeta,
) (*MappingResult, error) {
	if intake == nil {
		return nil, &ValidationError{Message: "intake record is required"}
	}

	result := &MappingResult{Fields: make(FlatDocFields)}

	// Plaintiff 1 is the primary client
	m.mapPlaintiffSlot(result, 1, intake.FirstName, intake.LastName, intake.Email, intake.Phone, nil)

	// Household members become plaintiffs 2..N+1 in stored order
	for i, member := range members {
		slot := i + 2
		if slot > maxPlaintiffSlots {
			result.warn(fmt.Sprintf("household member %q exceeds the %d plaintiff slots of the template; not mapped",
				member.FirstName+" "+member.LastName, maxPlaintiffSlots))
			continue
		}
		m.mapPlaintiffSlot(result, slot, member.FirstName, member.LastName, member.Email, member.Phone, member.DateOfBirth)
	}

	// Property address fan-out
	m.setString(result, "property-address", intake.PropertyStreetAddress)
	m.setString(result, "apartment-unit", intake.ApartmentUnit)
	m.setString(result, "city", intake.City)
	m.setString(result, "state", intake.State)
	m.setString(result, "zip-code", intake.ZipCode)
	m.setString(result, "filing-county", intake.FilingCounty)

	// Tenancy
	m.setDate(result, "move-in-date", intake.MoveInDate)
	m.setMoney(result, "monthly-rent", intake.MonthlyRent)
	m.setMoney(result, "security-deposit", intake.SecurityDeposit)

	// Landlord block
	if landlord != nil {
		m.setString(result, "landlord-name", landlord.Name)
		m.setString(result, "landlord-company", landlord.CompanyName)
		m.setString(result, "landlord-address", landlord.StreetAddress)
		m.setString(result, "landlord-city", landlord.City)
		m.setString(result, "landlord-state", landlord.State)
		m.setString(result, "landlord-zip", landlord.ZipCode)
		m.setString(result, "landlord-phone", landlord.Phone)
		m.setString(result, "landlord-email", landlord.Email)
	}

	// Building issues through the normalizer; the stored master flags are
	// reconciled there, never trusted here.
	normalized, err := NormalizeIntakeIssues(intake.Issues)
	if err != nil {
		return nil, err
	}
	for _, tag := range ActiveIssueTags(normalized) {
		m.mapIssueTag(result, tag)
	}

	// Injury: surface both candidates, only map agreement
	result.Injury = injuryCandidates(intake)
	if resolved := result.Injury.Resolved(); resolved != nil {
		m.setField(result, "injury-claimed", *resolved)
	} else if result.Injury.FromFlag != nil && result.Injury.FromNarrative != nil {
		result.warn("injury flag and injury narrative disagree; injury-claimed left unset for manual decision")
	}

	// Case metadata and attorney directory
	m.setString(result, "case-number", meta.CaseNumber)
	m.setDate(result, "document-date", meta.DocumentDate)
	if meta.AttorneyKey != "" {
		if attorney, ok := m.attorneys.Lookup(meta.AttorneyKey); ok {
			m.setField(result, "attorney-name", attorney.Name)
			m.setField(result, "attorney-bar-number", attorney.BarNumber)
			m.setField(result, "attorney-firm", attorney.FirmName)
			m.setField(result, "attorney-email", attorney.Email)
		} else {
			result.warn(fmt.Sprintf("attorney key %q not found in directory", meta.AttorneyKey))
		}
	}

	if result.mappable > 0 {
		result.Coverage = float64(result.consumed) / float64(result.mappable)
	}

	for _, w := range result.Warnings {
		m.logger.Warn("field mapping warning", zap.String("warning", w))
	}

	return result, nil
}

// BindPlaintiff rebinds the shared case fields to one plaintiff: the
// plaintiff-1 key family and the issue keys become that party's, while
// property, landlord, attorney, and case keys stay shared. The input map is
// not mutated; fan-out renders share it read-only.
func (m *FieldMapper) BindPlaintiff(shared FlatDocFields, party models.Party) FlatDocFields {
	bound := make(FlatDocFields, len(shared))
	for k, v := range shared {
		if strings.HasPrefix(k, "plaintiff-") || strings.HasPrefix(k, "issue-") {
			continue
		}
		bound[k] = v
	}

	scratch := &MappingResult{Fields: bound}
	m.mapPlaintiffSlot(scratch, 1, party.FirstName, party.LastName, party.Email, party.Phone, nil)
	for _, tag := range party.IssueTags {
		m.mapIssueTag(scratch, tag)
	}
	return bound
}

func (m *FieldMapper) mapPlaintiffSlot(result *MappingResult, slot int, first, last, email, phone string, dob *time.Time) {
	m.setString(result, plaintiffKey(slot, "firstname"), first)
	m.setString(result, plaintiffKey(slot, "lastname"), last)
	if first != "" || last != "" {
		m.setField(result, plaintiffKey(slot, "fullname"), strings.TrimSpace(first+" "+last))
	}
	m.setString(result, plaintiffKey(slot, "email"), email)
	m.setString(result, plaintiffKey(slot, "phone"), phone)
	if dob != nil {
		m.setField(result, plaintiffKey(slot, "date-of-birth"), dob.Format("01/02/2006"))
	}
}

func (m *FieldMapper) mapIssueTag(result *MappingResult, tag string) {
	category, issue, ok := SplitIssueTag(tag)
	if !ok {
		result.warn(fmt.Sprintf("malformed issue tag %q dropped", tag))
		return
	}
	key := issueKey(category, issue)
	if _, known := templateFieldSet[key]; !known {
		result.warn(fmt.Sprintf("issue tag %q has no template field; dropped", tag))
		return
	}
	result.Fields[key] = true
}

// setString maps a source string field; an empty source yields an absent
// key, never an empty string.
func (m *FieldMapper) setString(result *MappingResult, key, value string) {
	result.mappable++
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if m.setField(result, key, value) {
		result.consumed++
	}
}

func (m *FieldMapper) setDate(result *MappingResult, key string, value *time.Time) {
	result.mappable++
	if value == nil {
		return
	}
	if m.setField(result, key, value.Format("01/02/2006")) {
		result.consumed++
	}
}

// setMoney coerces a submitted amount to an integer; non-numeric input maps
// to an absent key so a zero rent is never fabricated.
func (m *FieldMapper) setMoney(result *MappingResult, key, raw string) {
	result.mappable++
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return
	}
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "").Replace(cleaned)
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		cleaned = cleaned[:dot]
	}
	amount, err := strconv.Atoi(cleaned)
	if err != nil {
		result.warn(fmt.Sprintf("non-numeric amount %q for %s; field left absent", raw, key))
		return
	}
	if m.setField(result, key, amount) {
		result.consumed++
	}
}

// setField writes one target key after validating it against the template
// schema. An out-of-schema key is a builder bug surfaced as a warning.
func (m *FieldMapper) setField(result *MappingResult, key string, value interface{}) bool {
	if _, known := templateFieldSet[key]; !known {
		result.warn(fmt.Sprintf("target key %q is not in the template schema; dropped", key))
		return false
	}
	result.Fields[key] = value
	return true
}

func (r *MappingResult) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

func injuryCandidates(intake *models.IntakeRecord) InjuryCandidates {
	candidates := InjuryCandidates{FromFlag: intake.HasInjuryIssues}
	if strings.TrimSpace(intake.InjuryDescription) != "" {
		v := true
		candidates.FromNarrative = &v
	}
	return candidates
}
