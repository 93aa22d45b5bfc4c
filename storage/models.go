package storage

// AdminSettings is the single settings row (id = 1) controlling AI features.
type AdminSettings struct {
	AIEnabled              bool
	AIProvider             string
	APIKey                 string // decrypted credential; Ollama stores its server URL here
	OllamaModel            string
	FeatureAlternatives    bool
	FeatureChat            bool
	FeatureAnalysis        bool
	FeatureRecommendations bool
	InternetAccessEnabled  bool
	SearchMethod           string
	SearchAPIKey           string
	ToolCallingEnabled     bool
}

// Subscription billing cycles and statuses.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleWeekly  = "weekly"

	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusPaused    = "paused"
)

// Subscription is one tracked recurring service.
type Subscription struct {
	ID               int64   `json:"id"`
	UserID           int64   `json:"user_id"`
	Name             string  `json:"name"`
	Cost             float64 `json:"cost"`
	BillingCycle     string  `json:"billing_cycle"`
	RenewalDate      string  `json:"renewal_date"`
	Category         string  `json:"category"`
	AlternativeNotes string  `json:"alternative_notes,omitempty"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at,omitempty"`
}

// MonthlyCost normalizes the subscription cost to a monthly figure.
func (s Subscription) MonthlyCost() float64 {
	switch s.BillingCycle {
	case CycleYearly:
		return s.Cost / 12
	case CycleWeekly:
		return s.Cost * 4.33
	default:
		return s.Cost
	}
}

// YearlyCost normalizes the subscription cost to a yearly figure.
func (s Subscription) YearlyCost() float64 {
	switch s.BillingCycle {
	case CycleYearly:
		return s.Cost
	case CycleWeekly:
		return s.Cost * 52
	default:
		return s.Cost * 12
	}
}

// CategorySpend is per-category aggregation for the dashboard.
type CategorySpend struct {
	Category    string  `json:"category"`
	Count       int     `json:"count"`
	MonthlyCost float64 `json:"monthly_cost"`
}

// DashboardStats summarizes a user's active portfolio.
type DashboardStats struct {
	TotalSubscriptions int             `json:"total_subscriptions"`
	MonthlyCost        float64         `json:"monthly_cost"`
	YearlyCost         float64         `json:"yearly_cost"`
	Categories         []CategorySpend `json:"categories"`
	UpcomingRenewals   []Subscription  `json:"upcoming_renewals"`
}

// ChatTurn is one persisted chat exchange half.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
