// internal/domain/composition/cohort.go

// Package composition is the team-composition eligibility engine: it
// classifies members into department cohorts and evaluates a candidate
// member set against a parametrized rule table. It is pure — no storage,
// no side effects — and is the only place composition rules exist.
package composition

import "strings"

// Cohort is one of the three department groupings used by quota rules.
type Cohort string

const (
	Foundation   Cohort = "foundation"
	Structural   Cohort = "structural"
	Innovation   Cohort = "innovation"
	Unclassified Cohort = "unclassified"
)

// Department lists per cohort. Matching is case-insensitive and exact;
// the short forms are the abbreviations the intake forms used, kept so
// profiles captured either way classify the same.
var cohortDepartments = map[Cohort][]string{
	Foundation: {
		"Physics",
		"Chemistry",
		"Mathematics",
		"Maths",
		"Master of Business Administration",
		"MBA",
		"Humanities and Social Science",
		"Humanities & Social Science",
		"HSS",
	},
	Structural: {
		"Mechanical Engineering",
		"ME",
		"Civil Engineering",
		"CIV",
		"Electrical & Electronics Engineering",
		"EE",
		"Electronics & Communication Engineering",
		"ECE",
		"Electronics & Telecommunication Engineering",
		"ETE",
	},
	Innovation: {
		"Computer Science & Engineering",
		"Computer Science and Engineering",
		"CSE",
		"Information Science & Engineering",
		"ISE",
		"Artificial Intelligence and Machine Learning",
		"AIML",
		"AI&ML",
		"Computer Science and Business Systems",
		"CSBS",
		"Master of Computer Applications",
		"MCA",
	},
}

// departmentIndex maps a folded department name to its cohort.
var departmentIndex = func() map[string]Cohort {
	idx := make(map[string]Cohort)
	for cohort, names := range cohortDepartments {
		for _, n := range names {
			idx[foldDepartment(n)] = cohort
		}
	}
	return idx
}()

func foldDepartment(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Classify maps a department string to its cohort. It is total and stable:
// any department not on the fixed lists is Unclassified. Unclassified
// members still count toward size and gender rules, just not toward any
// cohort window.
func Classify(department string) Cohort {
	if c, ok := departmentIndex[foldDepartment(department)]; ok {
		return c
	}
	return Unclassified
}
