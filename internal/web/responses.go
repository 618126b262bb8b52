package web

import (
	"time"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/ledger"
	"github.com/willemschots/ecocredit/internal/stats"
)

type successResponse struct {
	Success bool `json:"success"`
}

// userResponse never contains the password hash.
type userResponse struct {
	ID            int       `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      *string   `json:"full_name"`
	CarbonCredits int       `json:"carbon_credits"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      string(u.Username),
		Email:         string(u.Email),
		FullName:      optional(u.FullName),
		CarbonCredits: u.Credits,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type authResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
}

func newAuthResponse(a auth.Authenticated) authResponse {
	return authResponse{
		Success: true,
		User:    newUserResponse(a.User),
		Token:   a.Token.String(),
	}
}

type billingEntry struct {
	ID              int       `json:"id"`
	UserID          int       `json:"user_id"`
	EnergyType      string    `json:"energy_type"`
	UnitsConsumed   float64   `json:"units_consumed"`
	CarbonEmissions float64   `json:"carbon_emissions"`
	CreditsEarned   int       `json:"credits_earned"`
	Date            string    `json:"date"`
	CreatedAt       time.Time `json:"created_at"`
}

func newBillingEntries(entries []ledger.BillingEntry) []billingEntry {
	out := make([]billingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, newBillingEntry(e))
	}
	return out
}

func newBillingEntry(e ledger.BillingEntry) billingEntry {
	return billingEntry{
		ID:              e.ID,
		UserID:          e.UserID,
		EnergyType:      string(e.EnergyType),
		UnitsConsumed:   e.UnitsConsumed,
		CarbonEmissions: e.CarbonEmissions,
		CreditsEarned:   e.CreditsEarned,
		Date:            e.Date.Format(ledger.DateLayout),
		CreatedAt:       e.CreatedAt,
	}
}

type recyclingEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	WasteType string    `json:"waste_type"`
	Quantity  float64   `json:"quantity"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

func newRecyclingEntries(entries []ledger.RecyclingEntry) []recyclingEntry {
	out := make([]recyclingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, recyclingEntry{
			ID:        e.ID,
			UserID:    e.UserID,
			WasteType: string(e.WasteType),
			Quantity:  e.Quantity,
			Credits:   e.Credits,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type dashboardResponse struct {
	User struct {
		ID            int     `json:"id"`
		Username      string  `json:"username"`
		Email         string  `json:"email"`
		FullName      *string `json:"full_name"`
		CarbonCredits int     `json:"carbon_credits"`
	} `json:"user"`
	Stats struct {
		TotalConsumption       float64 `json:"totalConsumption"`
		TotalEmissions         float64 `json:"totalEmissions"`
		TotalCredits           int     `json:"totalCredits"`
		RecyclingContributions int     `json:"recyclingContributions"`
	} `json:"stats"`
	MonthlyData   []monthPoint   `json:"monthlyData"`
	RecentUploads []billingEntry `json:"recentUploads"`
}

type monthPoint struct {
	Month     string  `json:"month"`
	Label     string  `json:"label"`
	Emissions float64 `json:"emissions"`
	Credits   int     `json:"credits"`
}

func newDashboardResponse(d stats.Dashboard) dashboardResponse {
	var res dashboardResponse
	res.User.ID = d.User.ID
	res.User.Username = string(d.User.Username)
	res.User.Email = string(d.User.Email)
	res.User.FullName = optional(d.User.FullName)
	res.User.CarbonCredits = d.User.Credits

	res.Stats.TotalConsumption = d.TotalConsumption
	res.Stats.TotalEmissions = d.TotalEmissions
	res.Stats.TotalCredits = d.TotalCredits
	res.Stats.RecyclingContributions = d.RecyclingContributions

	res.MonthlyData = make([]monthPoint, 0, len(d.Monthly))
	for _, m := range d.Monthly {
		res.MonthlyData = append(res.MonthlyData, monthPoint(m))
	}

	res.RecentUploads = newBillingEntries(d.RecentUploads)

	return res
}

type leaderboardEntry struct {
	Rank      int     `json:"rank"`
	ID        int     `json:"id"`
	Username  string  `json:"username"`
	FullName  *string `json:"full_name"`
	Credits   int     `json:"credits"`
	Reduction int     `json:"reduction"`
	Badge     *string `json:"badge"`
}

type leaderboardResponse struct {
	Success bool               `json:"success"`
	Data    []leaderboardEntry `json:"data"`
	Stats   struct {
		TotalUsers     int `json:"totalUsers"`
		TotalCredits   int `json:"totalCredits"`
		TotalReduction int `json:"totalReduction"`
	} `json:"stats"`
}

func newLeaderboardResponse(lb stats.Leaderboard) leaderboardResponse {
	res := leaderboardResponse{
		Success: true,
		Data:    make([]leaderboardEntry, 0, len(lb.Entries)),
	}

	for _, e := range lb.Entries {
		res.Data = append(res.Data, leaderboardEntry{
			Rank:      e.Rank,
			ID:        e.UserID,
			Username:  string(e.Username),
			FullName:  optional(e.FullName),
			Credits:   e.Credits,
			Reduction: e.Reduction,
			Badge:     optional(string(e.Badge)),
		})
	}

	res.Stats.TotalUsers = lb.Stats.TotalUsers
	res.Stats.TotalCredits = lb.Stats.TotalCredits
	res.Stats.TotalReduction = lb.Stats.TotalReduction

	return res
}

type analyticsResponse struct {
	Emissions []monthlyEmissions `json:"emissions"`
	Credits   []monthlyCredits   `json:"credits"`
}

type monthlyEmissions struct {
	Month     string  `json:"month"`
	Label     string  `json:"label"`
	Emissions float64 `json:"emissions"`
}

type monthlyCredits struct {
	Month   string `json:"month"`
	Label   string `json:"label"`
	Credits int    `json:"credits"`
}

func newAnalyticsResponse(a stats.Analytics) analyticsResponse {
	res := analyticsResponse{
		Emissions: make([]monthlyEmissions, 0, len(a.Emissions)),
		Credits:   make([]monthlyCredits, 0, len(a.Credits)),
	}

	for _, e := range a.Emissions {
		res.Emissions = append(res.Emissions, monthlyEmissions(e))
	}

	for _, c := range a.Credits {
		res.Credits = append(res.Credits, monthlyCredits(c))
	}

	return res
}

// optional maps the empty string to a JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
