package types

// FilterDecisionValue is the verdict of the job filter.
type FilterDecisionValue string

// Filter decision constants
const (
	DecisionAccept FilterDecisionValue = "accept"
	DecisionReject FilterDecisionValue = "reject"
	DecisionMaybe  FilterDecisionValue = "maybe"
)

// FilterCriteria describes what makes a job posting worth pursuing.
type FilterCriteria struct {
	Keywords         []string `json:"keywords,omitempty"`
	ExcludeKeywords  []string `json:"exclude_keywords,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	ExperienceLevels []string `json:"experience_levels,omitempty"`
	MinSalary        int      `json:"min_salary,omitempty"`
	RemoteOnly       bool     `json:"remote_only,omitempty"`
}

// FilterDecision is the outcome of filtering one job posting.
type FilterDecision struct {
	Decision   FilterDecisionValue `json:"decision"`
	Confidence float64             `json:"confidence"`
	Reasoning  string              `json:"reasoning"`
}

// Rejected reports whether the decision rules the job out.
func (d *FilterDecision) Rejected() bool {
	return d.Decision == DecisionReject
}
