// internal/domain/composition/rules.go
package composition

// Window bounds a cohort's member count, inclusive on both ends.
type Window struct {
	Min int
	Max int
}

// RuleSet is the parametrized rule table evaluated by Validate. The same
// table serves every membership-changing operation; the two constructors
// below are the only configurations in use.
type RuleSet struct {
	// Capacity is the team's total size bound, leader included.
	Capacity int

	// ExactSize requires the candidate set to equal Capacity exactly
	// (complete-team semantics). When false the set may be any size up to
	// Capacity, and the minimum-count rules (cohort minimums, gender
	// balance) are deferred: a partially formed team cannot meet them yet.
	ExactSize bool

	// DistinctDepartments requires all departments to be pairwise distinct.
	DistinctDepartments bool

	// Windows bounds each cohort's count. Maximums always bind; minimums
	// bind only under ExactSize.
	Windows map[Cohort]Window

	// MinFemale/MinMale are the gender-balance floor, evaluated only under
	// ExactSize and only when every member has a gender recorded.
	MinFemale int
	MinMale   int

	// RequireGender makes a missing gender attribute a violation in its
	// own right.
	RequireGender bool
}

func canonicalWindows() map[Cohort]Window {
	return map[Cohort]Window{
		Foundation: {Min: 1, Max: 1},
		Structural: {Min: 1, Max: 2},
		Innovation: {Min: 2, Max: 3},
	}
}

// CreationRules is the strict gate for assembling a complete team: exact
// size, pairwise-distinct departments, all three cohort windows, and at
// least two members of each gender.
func CreationRules(capacity int) RuleSet {
	return RuleSet{
		Capacity:            capacity,
		ExactSize:           true,
		DistinctDepartments: true,
		Windows:             canonicalWindows(),
		MinFemale:           2,
		MinMale:             2,
		RequireGender:       true,
	}
}

// AdmissionRules is the same table relaxed for adding one member to a
// partially formed team: size bounded by capacity rather than exact, and
// the minimum counts deferred. Maximums, distinctness, and the
// gender-presence requirement still bind.
func AdmissionRules(capacity int) RuleSet {
	rs := CreationRules(capacity)
	rs.ExactSize = false
	return rs
}
