// internal/domain/composition/eligibility.go
package composition

// CohortStatus is one cohort's progress toward its minimum.
type CohortStatus struct {
	Count     int
	Required  int
	Fulfilled bool
}

// Eligibility is the soft evaluation persisted on a team after every
// roster change. Unlike Validate it never rejects anything: it reports
// where the roster stands against the cohort minimums so clients can
// render progress.
type Eligibility struct {
	Eligible   bool
	Foundation CohortStatus
	Structural CohortStatus
	Innovation CohortStatus
}

// Evaluate computes the soft eligibility of a member set under rules.
// Eligible is true exactly when every cohort count sits inside its
// window; the stricter size/distinctness/gender rules belong to
// Validate and never gate the stored flag. Evaluate is pure and
// idempotent.
func Evaluate(members []Member, rules RuleSet) Eligibility {
	counts := cohortCounts(members)
	status := func(c Cohort) CohortStatus {
		w := rules.Windows[c]
		n := counts[c]
		return CohortStatus{
			Count:     n,
			Required:  w.Min,
			Fulfilled: n >= w.Min && n <= w.Max,
		}
	}

	f, s, i := status(Foundation), status(Structural), status(Innovation)
	return Eligibility{
		Eligible:   f.Fulfilled && s.Fulfilled && i.Fulfilled,
		Foundation: f,
		Structural: s,
		Innovation: i,
	}
}
