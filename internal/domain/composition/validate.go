// internal/domain/composition/validate.go
package composition

import (
	"fmt"
	"sort"
	"strings"
)

// Member is the slice of a user the engine needs: identity for violation
// messages, department for cohort rules, gender for balance rules.
type Member struct {
	Name       string
	Department string
	Gender     string // "M" | "F" | ""
}

// Verdict is the outcome of validating a candidate member set. Violations
// is rule-level (one entry per failed rule), and every applicable rule is
// evaluated — callers see the full list in one response.
type Verdict struct {
	OK         bool
	Violations []string
}

// NormalizeGender folds the accepted spellings to "M"/"F". Anything else,
// including the empty string, normalizes to "".
func NormalizeGender(g string) string {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	default:
		return ""
	}
}

// Validate evaluates members against rules and collects every violation.
// It never fails fast: a set that is both the wrong size and gender-skewed
// reports both.
func Validate(members []Member, rules RuleSet) Verdict {
	var violations []string

	if rules.ExactSize {
		if len(members) != rules.Capacity {
			violations = append(violations,
				fmt.Sprintf("team must have exactly %d members including the leader (currently %d)", rules.Capacity, len(members)))
		}
	} else if len(members) > rules.Capacity {
		violations = append(violations,
			fmt.Sprintf("team cannot exceed %d members including the leader (would be %d)", rules.Capacity, len(members)))
	}

	if rules.DistinctDepartments && hasDuplicateDepartment(members) {
		violations = append(violations, "all team members must be from different departments")
	}

	counts := cohortCounts(members)
	for _, cohort := range []Cohort{Foundation, Structural, Innovation} {
		w, ok := rules.Windows[cohort]
		if !ok {
			continue
		}
		n := counts[cohort]
		if n > w.Max {
			violations = append(violations,
				fmt.Sprintf("too many %s cohort members (%d, maximum %d)", cohort, n, w.Max))
		} else if rules.ExactSize && n < w.Min {
			violations = append(violations,
				fmt.Sprintf("not enough %s cohort members (%d, minimum %d)", cohort, n, w.Min))
		}
	}

	if rules.RequireGender {
		if missing := missingGenderNames(members); len(missing) > 0 {
			violations = append(violations,
				fmt.Sprintf("gender information missing for: %s", strings.Join(missing, ", ")))
			// Balance cannot be evaluated jointly with missing attributes.
			return Verdict{OK: len(violations) == 0, Violations: violations}
		}
	}

	if rules.ExactSize {
		female, male := genderCounts(members)
		if female < rules.MinFemale {
			violations = append(violations,
				fmt.Sprintf("team must have at least %d female members (currently %d)", rules.MinFemale, female))
		}
		if male < rules.MinMale {
			violations = append(violations,
				fmt.Sprintf("team must have at least %d male members (currently %d)", rules.MinMale, male))
		}
	}

	return Verdict{OK: len(violations) == 0, Violations: violations}
}

func hasDuplicateDepartment(members []Member) bool {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		key := foldDepartment(m.Department)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func cohortCounts(members []Member) map[Cohort]int {
	counts := make(map[Cohort]int, 4)
	for _, m := range members {
		counts[Classify(m.Department)]++
	}
	return counts
}

func missingGenderNames(members []Member) []string {
	var names []string
	for _, m := range members {
		if NormalizeGender(m.Gender) == "" {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}

func genderCounts(members []Member) (female, male int) {
	for _, m := range members {
		switch NormalizeGender(m.Gender) {
		case "F":
			female++
		case "M":
			male++
		}
	}
	return female, male
}
