package types

// Contact is a person discovered at a target company.
type Contact struct {
	Name       string  `json:"name,omitempty"`
	Title      string  `json:"title,omitempty"`
	Email      string  `json:"email"`
	LinkedIn   string  `json:"linkedin,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ContactSearchResult is the outcome of contact discovery for one company.
type ContactSearchResult struct {
	Company     string    `json:"company"`
	Domain      string    `json:"domain,omitempty"`
	Contacts    []Contact `json:"contacts"`
	MethodsUsed []string  `json:"methods_used,omitempty"`
	TotalFound  int       `json:"total_found"`
}
