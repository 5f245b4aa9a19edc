package service

import (
	"testing"
	"time"

	"tenantdocs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntake() *models.IntakeRecord {
	return &models.IntakeRecord{
		FirstName:             "John",
		LastName:              "Doe",
		Email:                 "john@example.com",
		PropertyStreetAddress: "123 Main St",
		City:                  "Oakland",
		Issues: models.IssueBlocks{
			CategoryPlumbing: {
				Issues: map[string]bool{"no-hot-water": true},
			},
		},
	}
}

func TestMapMinimalIntake(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	result, err := mapper.Map(testIntake(), nil, nil, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, "John", result.Fields["plaintiff-1-firstname"])
	assert.Equal(t, "Doe", result.Fields["plaintiff-1-lastname"])
	assert.Equal(t, "John Doe", result.Fields["plaintiff-1-fullname"])
	assert.Equal(t, "123 Main St", result.Fields["property-address"])
	assert.Equal(t, "Oakland", result.Fields["city"])
	assert.Equal(t, true, result.Fields["issue-plumbing-no-hot-water"])

	// Absent source fields must yield absent keys, not empty values.
	_, ok := result.Fields["state"]
	assert.False(t, ok)
	_, ok = result.Fields["zip-code"]
	assert.False(t, ok)
	_, ok = result.Fields["plaintiff-1-phone"]
	assert.False(t, ok)
	_, ok = result.Fields["plaintiff-2-firstname"]
	assert.False(t, ok)
}

func TestMapIsDeterministic(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)
	intake := testIntake()
	intake.Issues[CategoryPest] = models.IssueCategoryBlock{
		Issues: map[string]bool{"rodents": true, "cockroaches": true},
	}

	first, err := mapper.Map(intake, nil, nil, CaseMeta{})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := mapper.Map(intake, nil, nil, CaseMeta{})
		require.NoError(t, err)
		assert.Equal(t, first.Fields, again.Fields)
		assert.Equal(t, first.Warnings, again.Warnings)
		assert.Equal(t, first.Coverage, again.Coverage)
	}
}

func TestMapHouseholdMemberSlots(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)
	dob := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)

	members := []models.HouseholdMember{
		{FirstName: "Jane", LastName: "Doe", DateOfBirth: &dob},
		{FirstName: "Jim", LastName: "Doe"},
	}

	result, err := mapper.Map(testIntake(), nil, members, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, "Jane", result.Fields["plaintiff-2-firstname"])
	assert.Equal(t, "03/14/1990", result.Fields["plaintiff-2-date-of-birth"])
	assert.Equal(t, "Jim", result.Fields["plaintiff-3-firstname"])
	assert.Empty(t, result.Warnings)
}

func TestMapOverflowMembersWarn(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	members := make([]models.HouseholdMember, 6)
	for i := range members {
		members[i] = models.HouseholdMember{FirstName: "Member", LastName: string(rune('A' + i))}
	}

	result, err := mapper.Map(testIntake(), nil, members, CaseMeta{})
	require.NoError(t, err)

	// Slots 2..5 hold the first four members; the last two warn.
	assert.Equal(t, "Member", result.Fields["plaintiff-5-firstname"])
	_, ok := result.Fields["plaintiff-6-firstname"]
	assert.False(t, ok)
	assert.Len(t, result.Warnings, 2)
}

func TestMapMoneyCoercion(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	intake := testIntake()
	intake.MonthlyRent = "$2,450.75"
	intake.SecurityDeposit = "not sure"

	result, err := mapper.Map(intake, nil, nil, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, 2450, result.Fields["monthly-rent"])
	_, ok := result.Fields["security-deposit"]
	assert.False(t, ok)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "security-deposit")
}

func TestMapLandlordBlock(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	landlord := &models.LandlordInfo{
		Name:        "Acme Property Mgmt",
		CompanyName: "Acme Holdings LLC",
		Phone:       "555-0100",
	}

	result, err := mapper.Map(testIntake(), landlord, nil, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, "Acme Property Mgmt", result.Fields["landlord-name"])
	assert.Equal(t, "Acme Holdings LLC", result.Fields["landlord-company"])
	_, ok := result.Fields["landlord-email"]
	assert.False(t, ok)
}

func TestMapExcludedIssueTagWarns(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	intake := testIntake()
	intake.Issues[CategorySecurity] = models.IssueCategoryBlock{
		Issues: map[string]bool{"broken-mailbox": true, "broken-locks": true},
	}

	result, err := mapper.Map(intake, nil, nil, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, true, result.Fields["issue-security-broken-locks"])
	_, ok := result.Fields["issue-security-broken-mailbox"]
	assert.False(t, ok)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "security/broken-mailbox")
}

func TestMapInjuryAgreement(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	intake := testIntake()
	yes := true
	intake.HasInjuryIssues = &yes
	intake.InjuryDescription = "slipped on wet stairwell"

	result, err := mapper.Map(intake, nil, nil, CaseMeta{})
	require.NoError(t, err)

	assert.Equal(t, true, result.Fields["injury-claimed"])
	require.NotNil(t, result.Injury.FromFlag)
	require.NotNil(t, result.Injury.FromNarrative)
}

func TestMapInjuryDivergence(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	intake := testIntake()
	no := false
	intake.HasInjuryIssues = &no
	intake.InjuryDescription = "slipped on wet stairwell"

	result, err := mapper.Map(intake, nil, nil, CaseMeta{})
	require.NoError(t, err)

	_, ok := result.Fields["injury-claimed"]
	assert.False(t, ok)
	assert.Nil(t, result.Injury.Resolved())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "disagree")
}

func TestMapAttorneyDirectory(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	result, err := mapper.Map(testIntake(), nil, nil, CaseMeta{AttorneyKey: "m-alvarez"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Fields["attorney-name"])
	assert.NotEmpty(t, result.Fields["attorney-bar-number"])

	result, err = mapper.Map(testIntake(), nil, nil, CaseMeta{AttorneyKey: "nobody"})
	require.NoError(t, err)
	_, ok := result.Fields["attorney-name"]
	assert.False(t, ok)
	require.Len(t, result.Warnings, 1)
}

func TestMapCoverage(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	result, err := mapper.Map(testIntake(), nil, nil, CaseMeta{})
	require.NoError(t, err)
	assert.Greater(t, result.Coverage, 0.0)
	assert.LessOrEqual(t, result.Coverage, 1.0)

	sparse := &models.IntakeRecord{
		FirstName:             "A",
		LastName:              "B",
		PropertyStreetAddress: "1 St",
	}
	sparseResult, err := mapper.Map(sparse, nil, nil, CaseMeta{})
	require.NoError(t, err)
	assert.Less(t, sparseResult.Coverage, result.Coverage)
}

func TestMapRejectsNilIntake(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	_, err := mapper.Map(nil, nil, nil, CaseMeta{})
	require.Error(t, err)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestKeyBuildersStayInSchema(t *testing.T) {
	for n := 1; n <= maxPlaintiffSlots; n++ {
		for _, f := range plaintiffFieldNames {
			_, ok := templateFieldSet[plaintiffKey(n, f)]
			assert.True(t, ok, "plaintiff key %s missing from schema", plaintiffKey(n, f))
		}
	}
	for _, category := range categoryOrder {
		for _, issue := range categoryIssueKeys[category] {
			tag := IssueTag(category, issue)
			_, excluded := excludedIssueTags[tag]
			_, ok := templateFieldSet[issueKey(category, issue)]
			assert.Equal(t, !excluded, ok, "schema membership mismatch for %s", tag)
		}
	}
}

func TestBindPlaintiff(t *testing.T) {
	mapper := NewFieldMapper(nil, nil)

	intake := testIntake()
	members := []models.HouseholdMember{{FirstName: "Jane", LastName: "Doe"}}
	shared, err := mapper.Map(intake, nil, members, CaseMeta{})
	require.NoError(t, err)

	party := models.Party{
		Role:      models.RolePlaintiff,
		FirstName: "Jane",
		LastName:  "Doe",
		IssueTags: []string{"plumbing/no-hot-water"},
	}

	bound := mapper.BindPlaintiff(shared.Fields, party)

	assert.Equal(t, "Jane", bound["plaintiff-1-firstname"])
	assert.Equal(t, "Jane Doe", bound["plaintiff-1-fullname"])
	assert.Equal(t, true, bound["issue-plumbing-no-hot-water"])
	_, ok := bound["plaintiff-2-firstname"]
	assert.False(t, ok)

	// Shared context carries over; the input map stays untouched.
	assert.Equal(t, "123 Main St", bound["property-address"])
	assert.Equal(t, "John", shared.Fields["plaintiff-1-firstname"])
	assert.Equal(t, "Jane", shared.Fields["plaintiff-2-firstname"])
}
