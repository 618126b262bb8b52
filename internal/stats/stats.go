package stats

import (
	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/ledger"
)

type Dashboard struct {
	User             auth.User
	TotalConsumption float64
	TotalEmissions   float64
	// TotalCredits is the balance of the user.
	TotalCredits int
	// RecyclingContributions is reported next to the balance, it is not part of it.
	RecyclingContributions int
	Monthly                []MonthPoint
	RecentUploads          []ledger.BillingEntry
}

// MonthPoint holds the billing sums of a calendar month.
type MonthPoint struct {
	// Month is formatted as YYYY-MM.
	Month     string
	Label     string
	Emissions float64
	Credits   int
}

type Badge string

const (
	BadgeNone   Badge = ""
	BadgeGold   Badge = "gold"
	BadgeSilver Badge = "silver"
	BadgeBronze Badge = "bronze"
)

type Leaderboard struct {
	Entries []LeaderboardEntry
	Stats   LeaderboardStats
}

type LeaderboardEntry struct {
	Rank      int
	UserID    int
	Username  auth.Username
	FullName  string
	Credits   int
	Reduction int
	Badge     Badge
}

type LeaderboardStats struct {
	TotalUsers     int
	TotalCredits   int
	TotalReduction int
}

// Analytics holds two independent monthly series.
type Analytics struct {
	Emissions []MonthlyEmissions
	Credits   []MonthlyCredits
}

type MonthlyEmissions struct {
	Month     string
	Label     string
	Emissions float64
}

type MonthlyCredits struct {
	Month   string
	Label   string
	Credits int
}
