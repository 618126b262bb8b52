package ledger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/willemschots/ecocredit/internal/errorz"
)

// Service records billing and recycling entries.
type Service struct {
	store Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store) *Service {
	return &Service{
		store:   s,
		NowFunc: time.Now,
	}
}

// PostBilling stores a billing entry and credits the earned amount to the
// user in the same transaction. Unknown users result in errorz.ErrNotFound.
// A posting that would push the balance past MaxBalance is rejected as invalid input.
func (s *Service) PostBilling(ctx context.Context, b Billing) (BillingEntry, error) {
	emissions, credits := b.Emissions()
	now := s.now()

	entry := BillingEntry{
		UserID:          b.UserID,
		EnergyType:      b.EnergyType,
		UnitsConsumed:   b.UnitsConsumed,
		CarbonEmissions: emissions,
		CreditsEarned:   credits,
		Date:            b.Date,
		CreatedAt:       now,
	}

	err := s.inTx(ctx, func(tx Tx) error {
		txErr := tx.AddUserCredits(b.UserID, credits, now)
		if errors.Is(txErr, errorz.ErrCheckViolated) {
			return errorz.InvalidInput{
				errorz.Keyed{Key: "units_consumed", Err: ErrBalanceLimit},
			}
		}
		if txErr != nil {
			return txErr
		}

		return tx.CreateBilling(&entry)
	})
	if err != nil {
		return BillingEntry{}, err
	}

	return entry, nil
}

// PostRecycling stores a recycling entry. The credits are not added to the
// balance of the user.
func (s *Service) PostRecycling(ctx context.Context, r Recycling) (RecyclingEntry, error) {
	entry := RecyclingEntry{
		UserID:    r.UserID,
		WasteType: r.WasteType,
		Quantity:  r.Quantity,
		Credits:   r.Credits(),
		CreatedAt: s.now(),
	}

	err := s.inTx(ctx, func(tx Tx) error {
		return tx.CreateRecycling(&entry)
	})
	if errors.Is(err, errorz.ErrForeignKeyViolated) {
		return RecyclingEntry{}, errorz.InvalidInput{
			errorz.Keyed{Key: "userId", Err: ErrUnknownUser},
		}
	}
	if err != nil {
		return RecyclingEntry{}, err
	}

	return entry, nil
}

// ListBilling returns the billing entries of a user, latest date first.
// Entries with the same date are ordered newest first.
func (s *Service) ListBilling(ctx context.Context, userID int) ([]BillingEntry, error) {
	entries, err := s.store.FindBilling(ctx, &BillingFilter{UserIDs: []int{userID}})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b BillingEntry) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	return entries, nil
}

// ListRecycling returns the recycling entries of a user, newest first.
func (s *Service) ListRecycling(ctx context.Context, userID int) ([]RecyclingEntry, error) {
	entries, err := s.store.FindRecycling(ctx, &RecyclingFilter{UserIDs: []int{userID}})
	if err != nil {
		return nil, err
	}

	slices.Reverse(entries)

	return entries, nil
}

func (s *Service) now() time.Time {
	return s.NowFunc().UTC()
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
