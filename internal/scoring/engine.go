// Package scoring provides the deterministic scoring engine that maps
// sub-scores to an overall score and category. It performs no I/O and never
// calls the text-generation service.
package scoring

import "github.com/jonathan/applicant-analyzer/internal/types"

// Weights applied to the sub-scores, in hundredths. Experience dominates,
// then skills, then education. The supplemental score carries no weight.
const (
	weightExperience = 50
	weightSkills     = 30
	weightEducation  = 20
)

// Category thresholds on the overall score, inclusive lower bounds.
const (
	thresholdBestMatch    = 90
	thresholdGoodMatch    = 70
	thresholdPartialMatch = 50
)

// Overall computes the weighted overall score from the sub-scores using
// truncating (floor) rounding. Integer arithmetic keeps the floor exact:
// e.g. experience=100, skills=100, education=49 yields 89, not 90.
func Overall(sub types.SubScores) int {
	return (weightExperience*sub.Experience + weightSkills*sub.Skills + weightEducation*sub.Education) / 100
}

// Categorize maps an overall score to its category, checking thresholds from
// high to low.
func Categorize(overall int) types.Category {
	switch {
	case overall >= thresholdBestMatch:
		return types.CategoryBestMatch
	case overall >= thresholdGoodMatch:
		return types.CategoryGoodMatch
	case overall >= thresholdPartialMatch:
		return types.CategoryPartialMatch
	default:
		return types.CategoryMismatched
	}
}

// Score computes both the overall score and its category in one call.
func Score(sub types.SubScores) (int, types.Category) {
	overall := Overall(sub)
	return overall, Categorize(overall)
}
