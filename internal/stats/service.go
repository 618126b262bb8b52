// Package stats aggregates ledger entries and user balances into dashboards,
// monthly series and the leaderboard.
package stats

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/ledger"
)

const (
	dashboardMonths = 6
	recentUploads   = 5

	monthKeyLayout   = "2006-01"
	monthLabelLayout = "Jan"
)

var reductionPerCredit = decimal.RequireFromString("0.5")

// UserFinder finds users, auth.Store implements it.
type UserFinder interface {
	FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error)
}

// EntryFinder finds ledger entries, ledger.Store implements it.
type EntryFinder interface {
	FindBilling(ctx context.Context, filter *ledger.BillingFilter) ([]ledger.BillingEntry, error)
	FindRecycling(ctx context.Context, filter *ledger.RecyclingFilter) ([]ledger.RecyclingEntry, error)
}

// Service computes read-only aggregates. It never writes.
type Service struct {
	users   UserFinder
	entries EntryFinder

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(users UserFinder, entries EntryFinder) *Service {
	return &Service{
		users:   users,
		entries: entries,
		NowFunc: time.Now,
	}
}

// Dashboard returns the totals, the trailing monthly series and the most
// recent uploads of a user. It returns errorz.ErrNotFound for unknown users.
func (s *Service) Dashboard(ctx context.Context, userID int) (Dashboard, error) {
	users, err := s.users.FindUsers(ctx, &auth.UserFilter{IDs: []int{userID}})
	if err != nil {
		return Dashboard{}, err
	}

	if len(users) != 1 {
		return Dashboard{}, errorz.ErrNotFound
	}

	billing, err := s.entries.FindBilling(ctx, &ledger.BillingFilter{UserIDs: []int{userID}})
	if err != nil {
		return Dashboard{}, err
	}

	recycling, err := s.entries.FindRecycling(ctx, &ledger.RecyclingFilter{UserIDs: []int{userID}})
	if err != nil {
		return Dashboard{}, err
	}

	var (
		consumption = decimal.Zero
		emissions   = decimal.Zero
	)
	for _, e := range billing {
		consumption = consumption.Add(decimal.NewFromFloat(e.UnitsConsumed))
		emissions = emissions.Add(decimal.NewFromFloat(e.CarbonEmissions))
	}

	return Dashboard{
		User:                   users[0],
		TotalConsumption:       consumption.InexactFloat64(),
		TotalEmissions:         emissions.InexactFloat64(),
		TotalCredits:           users[0].Credits,
		RecyclingContributions: ledger.SumRecyclingCredits(recycling),
		Monthly:                trailingMonths(billing, s.NowFunc().UTC(), dashboardMonths),
		RecentUploads:          newestFirst(billing, recentUploads),
	}, nil
}

// Leaderboard ranks all users by their balance. Users with equal balances
// keep their registration order, badges go to the first three positions.
func (s *Service) Leaderboard(ctx context.Context) (Leaderboard, error) {
	users, err := s.users.FindUsers(ctx, nil)
	if err != nil {
		return Leaderboard{}, err
	}

	// FindUsers orders by id, the stable sort keeps that order for ties.
	slices.SortStableFunc(users, func(a, b auth.User) int {
		return cmp.Compare(b.Credits, a.Credits)
	})

	lb := Leaderboard{
		Entries: make([]LeaderboardEntry, 0, len(users)),
	}

	for i, u := range users {
		entry := LeaderboardEntry{
			Rank:      i + 1,
			UserID:    u.ID,
			Username:  u.Username,
			FullName:  u.FullName,
			Credits:   u.Credits,
			Reduction: Reduction(u.Credits),
			Badge:     badgeFor(i),
		}

		lb.Entries = append(lb.Entries, entry)
		lb.Stats.TotalUsers++
		lb.Stats.TotalCredits += entry.Credits
		lb.Stats.TotalReduction += entry.Reduction
	}

	return lb, nil
}

// MonthlyAnalytics groups billing emissions by the month of their effective
// date and recycling credits by the month they were created. Both series are
// in ascending order and only contain months with entries.
func (s *Service) MonthlyAnalytics(ctx context.Context, userID int) (Analytics, error) {
	billing, err := s.entries.FindBilling(ctx, &ledger.BillingFilter{UserIDs: []int{userID}})
	if err != nil {
		return Analytics{}, err
	}

	recycling, err := s.entries.FindRecycling(ctx, &ledger.RecyclingFilter{UserIDs: []int{userID}})
	if err != nil {
		return Analytics{}, err
	}

	emissions := make(map[string]decimal.Decimal)
	for _, e := range billing {
		k := monthKey(e.Date)
		emissions[k] = emissions[k].Add(decimal.NewFromFloat(e.CarbonEmissions))
	}

	credits := make(map[string]int)
	for _, e := range recycling {
		credits[monthKey(e.CreatedAt)] += e.Credits
	}

	out := Analytics{
		Emissions: make([]MonthlyEmissions, 0, len(emissions)),
		Credits:   make([]MonthlyCredits, 0, len(credits)),
	}

	for _, k := range sortedKeys(emissions) {
		out.Emissions = append(out.Emissions, MonthlyEmissions{
			Month:     k,
			Label:     monthLabel(k),
			Emissions: emissions[k].InexactFloat64(),
		})
	}

	for _, k := range sortedKeys(credits) {
		out.Credits = append(out.Credits, MonthlyCredits{
			Month:   k,
			Label:   monthLabel(k),
			Credits: credits[k],
		})
	}

	return out, nil
}

// Reduction is the kg CO2 shown for a balance, half a kg per credit rounded half up.
func Reduction(credits int) int {
	return int(decimal.NewFromInt(int64(credits)).Mul(reductionPerCredit).Round(0).IntPart())
}

func badgeFor(position int) Badge {
	switch position {
	case 0:
		return BadgeGold
	case 1:
		return BadgeSilver
	case 2:
		return BadgeBronze
	default:
		return BadgeNone
	}
}

// trailingMonths returns n points ending with the month of now, oldest first.
func trailingMonths(entries []ledger.BillingEntry, now time.Time, n int) []MonthPoint {
	type sums struct {
		emissions decimal.Decimal
		credits   int
	}

	byMonth := make(map[string]sums)
	for _, e := range entries {
		k := monthKey(e.Date)
		cur := byMonth[k]
		cur.emissions = cur.emissions.Add(decimal.NewFromFloat(e.CarbonEmissions))
		cur.credits += e.CreditsEarned
		byMonth[k] = cur
	}

	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		m := current.AddDate(0, -i, 0)
		k := monthKey(m)
		out = append(out, MonthPoint{
			Month:     k,
			Label:     m.Format(monthLabelLayout),
			Emissions: byMonth[k].emissions.InexactFloat64(),
			Credits:   byMonth[k].credits,
		})
	}

	return out
}

// newestFirst returns the last n created entries, the newest first.
func newestFirst(entries []ledger.BillingEntry, n int) []ledger.BillingEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b ledger.BillingEntry) int {
		return cmp.Compare(b.ID, a.ID)
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

func monthKey(t time.Time) string {
	return t.UTC().Format(monthKeyLayout)
}

func monthLabel(key string) string {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return key
	}
	return t.Format(monthLabelLayout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
