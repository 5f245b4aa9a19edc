package service

import (
	"fmt"
	"strings"
	"time"

	"tenantdocs-backend/models"
)

// Issue category tags
const (
	CategoryStructural = "structural"
	CategoryPlumbing   = "plumbing"
	CategoryElectrical = "electrical"
	CategoryHVAC       = "hvac"
	CategoryAppliance  = "appliance"
	CategorySecurity   = "security"
	CategoryPest       = "pest"
)

// categoryOrder fixes the iteration order of categories so normalization
// output is deterministic regardless of input map order.
var categoryOrder = []string{
	CategoryStructural,
	CategoryPlumbing,
	CategoryElectrical,
	CategoryHVAC,
	CategoryAppliance,
	CategorySecurity,
	CategoryPest,
}

// categoryIssueKeys is the declared issue-key set of each category, in the
// fixed order issues are emitted. An issue key outside this table is schema
// drift, not user input.
var categoryIssueKeys = map[string][]string{
	CategoryStructural: {
		"foundation-cracks",
		"wall-cracks",
		"ceiling-damage",
		"floor-damage",
		"roof-leaks",
		"window-damage",
		"door-damage",
		"stairs-unsafe",
		"railing-broken",
	},
	CategoryPlumbing: {
		"no-hot-water",
		"low-water-pressure",
		"leaking-pipes",
		"clogged-drains",
		"toilet-broken",
		"sewage-backup",
		"water-damage",
		"mold",
	},
	CategoryElectrical: {
		"no-power",
		"exposed-wiring",
		"outlets-not-working",
		"flickering-lights",
		"circuit-breaker-trips",
		"light-fixtures-broken",
	},
	CategoryHVAC: {
		"no-heat",
		"no-air-conditioning",
		"poor-ventilation",
		"thermostat-broken",
		"radiator-leaks",
	},
	CategoryAppliance: {
		"stove-broken",
		"refrigerator-broken",
		"dishwasher-broken",
		"washer-dryer-broken",
		"garbage-disposal-broken",
	},
	CategorySecurity: {
		"broken-locks",
		"broken-intercom",
		"broken-gate",
		"no-smoke-detector",
		"no-carbon-monoxide-detector",
		"broken-mailbox",
	},
	CategoryPest: {
		"rodents",
		"cockroaches",
		"bedbugs",
		"ants",
		"termites",
		"other-insects",
	},
}

// NormalizedCategory is the canonical form of one issue-category block
type NormalizedCategory struct {
	CategoryTag  string
	ActiveIssues []string
	HasOther     bool
	Details      string
	FirstNoticed *time.Time
	ReportedDate *time.Time
}

// CategoryTags returns the declared categories in canonical order
func CategoryTags() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// CategoryIssueKeys returns the declared issue keys of a category in
// canonical order, or nil for an unknown category.
func CategoryIssueKeys(categoryTag string) []string {
	keys, ok := categoryIssueKeys[categoryTag]
	if !ok {
		return nil
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// NormalizeCategory flattens one raw category block into its canonical
// form. An issue is active only when its boolean is strictly true; the
// stored master flag is ignored. Returns nil for an empty category so the
// mapper can skip it. Pure; the only failure mode is shape drift.
func NormalizeCategory(categoryTag string, block models.IssueCategoryBlock) (*NormalizedCategory, error) {
	declared, ok := categoryIssueKeys[categoryTag]
	if !ok {
		return nil, &ValidationError{
			Field:   "issues",
			Message: fmt.Sprintf("unknown issue category %q", categoryTag),
		}
	}

	for key := range block.Issues {
		if !isDeclaredIssue(categoryTag, key) {
			return nil, &ValidationError{
				Field:   "issues." + categoryTag,
				Message: fmt.Sprintf("issue key %q is not part of the %s category", key, categoryTag),
			}
		}
	}

	active := make([]string, 0, len(declared))
	for _, key := range declared {
		if block.Issues[key] {
			active = append(active, key)
		}
	}

	hasOther := block.Other && strings.TrimSpace(block.OtherDetails) != ""

	if len(active) == 0 && !hasOther {
		return nil, nil
	}

	return &NormalizedCategory{
		CategoryTag:  categoryTag,
		ActiveIssues: active,
		HasOther:     hasOther,
		Details:      strings.TrimSpace(block.Details),
		FirstNoticed: block.FirstNoticed,
		ReportedDate: block.ReportedDate,
	}, nil
}

// NormalizeIntakeIssues normalizes every category block of an intake in
// canonical category order, dropping empty categories.
func NormalizeIntakeIssues(blocks models.IssueBlocks) ([]*NormalizedCategory, error) {
	for tag := range blocks {
		if _, ok := categoryIssueKeys[tag]; !ok {
			return nil, &ValidationError{
				Field:   "issues",
				Message: fmt.Sprintf("unknown issue category %q", tag),
			}
		}
	}

	out := make([]*NormalizedCategory, 0, len(blocks))
	for _, tag := range categoryOrder {
		block, ok := blocks[tag]
		if !ok {
			continue
		}
		normalized, err := NormalizeCategory(tag, block)
		if err != nil {
			return nil, err
		}
		if normalized != nil {
			out = append(out, normalized)
		}
	}
	return out, nil
}

// IssueTag builds the canonical "{category}/{issue}" tag
func IssueTag(categoryTag, issueKey string) string {
	return categoryTag + "/" + issueKey
}

// SplitIssueTag splits a canonical tag back into category and issue key
func SplitIssueTag(tag string) (categoryTag, issueKey string, ok bool) {
	parts := strings.SplitN(tag, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ActiveIssueTags flattens normalized categories into the ordered,
// deduplicated tag list a plaintiff party carries.
func ActiveIssueTags(categories []*NormalizedCategory) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, cat := range categories {
		if cat == nil {
			continue
		}
		for _, issue := range cat.ActiveIssues {
			tag := IssueTag(cat.CategoryTag, issue)
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

func isDeclaredIssue(categoryTag, issueKey string) bool {
	for _, k := range categoryIssueKeys[categoryTag] {
		if k == issueKey {
			return true
		}
	}
	return false
}
