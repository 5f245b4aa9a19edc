package service

import (
	"testing"

	"tenantdocs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCategoryActiveIssues(t *testing.T) {
	block := models.IssueCategoryBlock{
		MasterFlag: true,
		Issues: map[string]bool{
			"no-hot-water":  true,
			"leaking-pipes": true,
			"mold":          false,
		},
		Details: "  no hot water since January  ",
	}

	normalized, err := NormalizeCategory(CategoryPlumbing, block)
	require.NoError(t, err)
	require.NotNil(t, normalized)

	assert.Equal(t, CategoryPlumbing, normalized.CategoryTag)
	assert.Equal(t, []string{"no-hot-water", "leaking-pipes"}, normalized.ActiveIssues)
	assert.False(t, normalized.HasOther)
	assert.Equal(t, "no hot water since January", normalized.Details)
}

func TestNormalizeCategoryIgnoresMasterFlag(t *testing.T) {
	// A stale master flag with no active issues is an empty category.
	block := models.IssueCategoryBlock{
		MasterFlag: true,
		Issues:     map[string]bool{"rodents": false},
	}

	normalized, err := NormalizeCategory(CategoryPest, block)
	require.NoError(t, err)
	assert.Nil(t, normalized)

	// And a cleared master flag does not suppress active issues.
	block = models.IssueCategoryBlock{
		MasterFlag: false,
		Issues:     map[string]bool{"rodents": true},
	}

	normalized, err = NormalizeCategory(CategoryPest, block)
	require.NoError(t, err)
	require.NotNil(t, normalized)
	assert.Equal(t, []string{"rodents"}, normalized.ActiveIssues)
}

func TestNormalizeCategoryOtherRequiresDetails(t *testing.T) {
	block := models.IssueCategoryBlock{
		Other:        true,
		OtherDetails: "   ",
	}

	normalized, err := NormalizeCategory(CategoryElectrical, block)
	require.NoError(t, err)
	assert.Nil(t, normalized)

	block.OtherDetails = "sparking junction box in hallway"
	normalized, err = NormalizeCategory(CategoryElectrical, block)
	require.NoError(t, err)
	require.NotNil(t, normalized)
	assert.True(t, normalized.HasOther)
	assert.Empty(t, normalized.ActiveIssues)
}

func TestNormalizeCategoryRejectsUndeclaredKey(t *testing.T) {
	block := models.IssueCategoryBlock{
		Issues: map[string]bool{"hot-tub-broken": true},
	}

	_, err := NormalizeCategory(CategoryPlumbing, block)
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "issues.plumbing", vErr.Field)
}

func TestNormalizeCategoryUnknownCategory(t *testing.T) {
	_, err := NormalizeCategory("landscaping", models.IssueCategoryBlock{})
	require.Error(t, err)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestNormalizeIntakeIssuesCanonicalOrder(t *testing.T) {
	// Input map order must not leak into output order.
	blocks := models.IssueBlocks{
		CategoryPest: {
			Issues: map[string]bool{"bedbugs": true},
		},
		CategoryStructural: {
			Issues: map[string]bool{"roof-leaks": true},
		},
		CategoryHVAC: {
			Issues: map[string]bool{"no-heat": true},
		},
		CategoryPlumbing: {
			Issues: map[string]bool{"mold": false},
		},
	}

	for i := 0; i < 10; i++ {
		normalized, err := NormalizeIntakeIssues(blocks)
		require.NoError(t, err)
		require.Len(t, normalized, 3)
		assert.Equal(t, CategoryStructural, normalized[0].CategoryTag)
		assert.Equal(t, CategoryHVAC, normalized[1].CategoryTag)
		assert.Equal(t, CategoryPest, normalized[2].CategoryTag)
	}
}

func TestNormalizeIntakeIssuesRejectsUnknownCategory(t *testing.T) {
	blocks := models.IssueBlocks{
		"garage": {Issues: map[string]bool{"door-stuck": true}},
	}

	_, err := NormalizeIntakeIssues(blocks)
	require.Error(t, err)
}

func TestActiveIssueTags(t *testing.T) {
	normalized, err := NormalizeIntakeIssues(models.IssueBlocks{
		CategoryPlumbing: {
			Issues: map[string]bool{"no-hot-water": true, "mold": true},
		},
		CategorySecurity: {
			Issues: map[string]bool{"broken-locks": true},
		},
	})
	require.NoError(t, err)

	tags := ActiveIssueTags(normalized)
	assert.Equal(t, []string{
		"plumbing/no-hot-water",
		"plumbing/mold",
		"security/broken-locks",
	}, tags)
}

func TestIssueTagRoundTrip(t *testing.T) {
	tag := IssueTag(CategoryHVAC, "no-heat")
	assert.Equal(t, "hvac/no-heat", tag)

	category, issue, ok := SplitIssueTag(tag)
	require.True(t, ok)
	assert.Equal(t, CategoryHVAC, category)
	assert.Equal(t, "no-heat", issue)

	_, _, ok = SplitIssueTag("no-slash")
	assert.False(t, ok)
	_, _, ok = SplitIssueTag("/leading")
	assert.False(t, ok)
}

func TestCategoryAccessorsCopy(t *testing.T) {
	tags := CategoryTags()
	require.NotEmpty(t, tags)
	tags[0] = "mutated"
	assert.Equal(t, CategoryStructural, CategoryTags()[0])

	keys := CategoryIssueKeys(CategoryPlumbing)
	require.NotEmpty(t, keys)
	keys[0] = "mutated"
	assert.Equal(t, "no-hot-water", CategoryIssueKeys(CategoryPlumbing)[0])

	assert.Nil(t, CategoryIssueKeys("unknown"))
}
