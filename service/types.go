package service

// RequestError carries a user-facing message and an HTTP-style status code.
// Gating failures are 403, missing records 404, upstream failures 503.
type RequestError struct {
	Message string `json:"error"`
	Status  int    `json:"status"`
}

func (e *RequestError) Error() string {
	return e.Message
}

func disabled(message string) *RequestError {
	return &RequestError{Message: message, Status: 403}
}

func notFound(message string) *RequestError {
	return &RequestError{Message: message, Status: 404}
}

func unavailable(err error) *RequestError {
	return &RequestError{Message: err.Error(), Status: 503}
}

// Alternative is one suggested replacement service.
type Alternative struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Differences string `json:"differences"`
}

// AlternativesResult is the payload of FindAlternatives.
type AlternativesResult struct {
	Alternatives []Alternative `json:"alternatives"`
	Source       string        `json:"source"`
	Status       int           `json:"status"`
}

// Insight is one spending observation.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AnalysisResult is the payload of SpendingAnalysis.
type AnalysisResult struct {
	Insights []Insight `json:"insights"`
	Status   int       `json:"status"`
}

// Recommendation is one cost-optimization suggestion.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Savings     string `json:"savings"`
	Priority    string `json:"priority"`
}

// RecommendationsResult is the payload of Recommendations.
type RecommendationsResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Status          int              `json:"status"`
}

// ChatResult is the payload of Chat.
type ChatResult struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
	Status    int    `json:"status"`
}
