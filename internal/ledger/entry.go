package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/willemschots/ecocredit/internal/errorz"
)

// DateLayout is the layout of the effective date of billing entries.
const DateLayout = "2006-01-02"

const maxEnergyTypeLen = 100

const (
	// MaxEntryCredits is the most credits a single entry can earn.
	MaxEntryCredits = 1_000_000_000
	// MaxBalance is the highest credit balance a user can reach, the users
	// table enforces the same limit.
	MaxBalance = 1_000_000_000_000_000
)

var maxEntryCredits = decimal.NewFromInt(MaxEntryCredits)

var (
	ErrInvalidEnergyType = errors.New("energy type must be between 1 and 100 characters")
	ErrInvalidUnits      = errors.New("units consumed must be a positive number")
	ErrInvalidDate       = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidWasteType  = errors.New("waste type must be one of plastic, paper, glass, metal, ewaste or organic")
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
	ErrInvalidUserID     = errors.New("user id must be a positive number")
	ErrUnknownUser       = errors.New("user does not exist")
	ErrTooManyCredits    = fmt.Errorf("an entry can earn at most %d credits", MaxEntryCredits)
	ErrBalanceLimit      = fmt.Errorf("credit balance can not exceed %d", MaxBalance)
)

// EnergyType is the category of a billing entry, for example "Electricity (kWh)".
type EnergyType string

// Energy types with a known carbon factor. Any other non-empty energy
// type is accepted and uses DefaultCarbonFactor.
const (
	EnergyElectricity EnergyType = "Electricity (kWh)"
	EnergyNaturalGas  EnergyType = "Natural Gas (therms)"
	EnergyFuelOil     EnergyType = "Fuel Oil (gallons)"
	EnergyGasoline    EnergyType = "Gasoline (gallons)"
)

// DefaultCarbonFactor is used for energy types without a known factor.
var DefaultCarbonFactor = decimal.RequireFromString("0.5")

// carbonFactors are in kg CO2 per unit.
var carbonFactors = map[EnergyType]decimal.Decimal{
	EnergyElectricity: decimal.RequireFromString("0.4"),
	EnergyNaturalGas:  decimal.RequireFromString("5.3"),
	EnergyFuelOil:     decimal.RequireFromString("10.2"),
	EnergyGasoline:    decimal.RequireFromString("8.9"),
}

// CarbonFactor returns the kg CO2 emitted per consumed unit.
func (e EnergyType) CarbonFactor() decimal.Decimal {
	f, ok := carbonFactors[e]
	if !ok {
		return DefaultCarbonFactor
	}
	return f
}

// WasteType is the category of a recycling entry.
type WasteType string

const (
	WastePlastic WasteType = "plastic"
	WastePaper   WasteType = "paper"
	WasteGlass   WasteType = "glass"
	WasteMetal   WasteType = "metal"
	WasteEWaste  WasteType = "ewaste"
	WasteOrganic WasteType = "organic"
)

// creditRates are in credits per kg.
var creditRates = map[WasteType]int64{
	WastePlastic: 50,
	WastePaper:   75,
	WasteGlass:   60,
	WasteMetal:   85,
	WasteEWaste:  200,
	WasteOrganic: 40,
}

// ParseWasteType only accepts the known categories, there is no fallback.
func ParseWasteType(raw string) (WasteType, error) {
	w := WasteType(raw)
	if _, ok := creditRates[w]; !ok {
		return "", ErrInvalidWasteType
	}
	return w, nil
}

// CreditRate returns the credits earned per kg.
func (w WasteType) CreditRate() int64 {
	return creditRates[w]
}

// BillingEntry is an immutable record of consumed energy.
type BillingEntry struct {
	ID              int
	UserID          int
	EnergyType      EnergyType
	UnitsConsumed   float64
	CarbonEmissions float64
	CreditsEarned   int
	// Date is the effective date, at midnight UTC.
	Date      time.Time
	CreatedAt time.Time
}

// RecyclingEntry is an immutable record of recycled waste.
type RecyclingEntry struct {
	ID        int
	UserID    int
	WasteType WasteType
	// Quantity is in kg.
	Quantity  float64
	Credits   int
	CreatedAt time.Time
}

// Billing is the input for posting a billing entry.
type Billing struct {
	UserID        int
	EnergyType    EnergyType
	UnitsConsumed float64
	Date          time.Time
}

// ParseBilling validates raw billing input.
func ParseBilling(userID int, energyType string, unitsConsumed float64, date string) (Billing, error) {
	var (
		b    Billing
		errs errorz.InvalidInput
	)

	b.UserID = userID
	if userID <= 0 {
		errs = append(errs, errorz.Keyed{Key: "userId", Err: ErrInvalidUserID})
	}

	energyType = strings.TrimSpace(energyType)
	if energyType == "" || utf8.RuneCountInString(energyType) > maxEnergyTypeLen {
		errs = append(errs, errorz.Keyed{Key: "energy_type", Err: ErrInvalidEnergyType})
	}
	b.EnergyType = EnergyType(energyType)

	b.UnitsConsumed = unitsConsumed
	if !isPositive(unitsConsumed) {
		errs = append(errs, errorz.Keyed{Key: "units_consumed", Err: ErrInvalidUnits})
	} else if b.emissions().Round(0).GreaterThan(maxEntryCredits) {
		errs = append(errs, errorz.Keyed{Key: "units_consumed", Err: ErrTooManyCredits})
	}

	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "date", Err: ErrInvalidDate})
	}
	b.Date = d

	if len(errs) > 0 {
		return Billing{}, errs
	}

	return b, nil
}

// Emissions returns the kg CO2 and the credits earned for the billing.
// Credits are the emissions rounded half up to a whole number.
func (b Billing) Emissions() (float64, int) {
	e := b.emissions()
	return e.InexactFloat64(), int(e.Round(0).IntPart())
}

func (b Billing) emissions() decimal.Decimal {
	return decimal.NewFromFloat(b.UnitsConsumed).Mul(b.EnergyType.CarbonFactor())
}

// Recycling is the input for posting a recycling entry.
type Recycling struct {
	UserID    int
	WasteType WasteType
	Quantity  float64
}

// ParseRecycling validates raw recycling input.
func ParseRecycling(userID int, wasteType string, quantity float64) (Recycling, error) {
	var (
		r    Recycling
		errs errorz.InvalidInput
		err  error
	)

	r.UserID = userID
	if userID <= 0 {
		errs = append(errs, errorz.Keyed{Key: "userId", Err: ErrInvalidUserID})
	}

	r.WasteType, err = ParseWasteType(wasteType)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "wasteType", Err: err})
	}

	r.Quantity = quantity
	if !isPositive(quantity) {
		errs = append(errs, errorz.Keyed{Key: "quantity", Err: ErrInvalidQuantity})
	} else if r.credits().GreaterThan(maxEntryCredits) {
		errs = append(errs, errorz.Keyed{Key: "quantity", Err: ErrTooManyCredits})
	}

	if len(errs) > 0 {
		return Recycling{}, errs
	}

	return r, nil
}

// Credits returns quantity × rate, truncated toward zero.
func (r Recycling) Credits() int {
	return int(r.credits().IntPart())
}

func (r Recycling) credits() decimal.Decimal {
	return decimal.NewFromFloat(r.Quantity).Mul(decimal.NewFromInt(r.WasteType.CreditRate())).Truncate(0)
}

// SumRecyclingCredits returns the total credits of the entries.
func SumRecyclingCredits(entries []RecyclingEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Credits
	}
	return total
}

func isPositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1) && !math.IsNaN(f)
}
