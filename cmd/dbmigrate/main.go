package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/willemschots/ecocredit/internal"
	"github.com/willemschots/ecocredit/internal/auth"
	authdb "github.com/willemschots/ecocredit/internal/auth/db"
	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/db/migrate"
	"github.com/willemschots/ecocredit/internal/email"
	"github.com/willemschots/ecocredit/internal/ledger"
	ledgerdb "github.com/willemschots/ecocredit/internal/ledger/db"
	"github.com/willemschots/ecocredit/migrations"
)

const helpText = `Usage: dbmigrate [-status] [-seed-demo] sqlite_file`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dbmigrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	status := fs.Bool("status", false, "only list the pending migrations")
	seedDemo := fs.Bool("seed-demo", false, "create the demo account after migrating")

	err := fs.Parse(args)
	if err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	sqlDB, err := db.OpenSQLite(fs.Arg(0), true)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	if *status {
		pending, err := migrate.Pending(ctx, sqlDB, migrations.FS)
		if err != nil {
			fmt.Fprintf(stderr, "failed to query migrations: %v\n", err)
			return 1
		}

		for _, name := range pending {
			fmt.Fprintf(stdout, "pending: %s\n", name)
		}
		return 0
	}

	meta := migrate.Metadata{
		AppVersion: internal.Version(),
		Timestamp:  time.Now().UTC(),
	}

	ran, err := migrate.RunFS(ctx, sqlDB, migrations.FS, meta)
	if err != nil {
		fmt.Fprintf(stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	for _, migration := range ran {
		fmt.Fprintf(stdout, "%d: %s\n", migration.Sequence, migration.Filename)
	}

	if *seedDemo {
		created, posted, err := seedDemoAccount(ctx, sqlDB)
		if err != nil {
			fmt.Fprintf(stderr, "failed to seed demo account: %v\n", err)
			return 1
		}

		switch {
		case created:
			fmt.Fprintf(stdout, "created demo account %s\n", demoEmail)
		case posted > 0:
			fmt.Fprintf(stdout, "completed demo account %s with %d bills\n", demoEmail, posted)
		default:
			fmt.Fprintf(stdout, "demo account %s already exists\n", demoEmail)
		}
	}

	return 0
}

const (
	demoUsername = "demouser"
	demoEmail    = "demo@example.com"
	demoPassword = "password123"
	demoFullName = "Demo User"
)

type demoBill struct {
	energyType ledger.EnergyType
	units      float64
	date       string
}

var demoBills = []demoBill{
	{ledger.EnergyElectricity, 450, "2024-01-15"},
	{ledger.EnergyNaturalGas, 120, "2024-02-15"},
	{ledger.EnergyElectricity, 380, "2024-03-15"},
}

// seedDemoAccount registers the demo user if needed and posts the demo bills
// it does not have yet. It reports whether the user was created and how many
// bills were posted, so an interrupted seed is completed by the next run.
func seedDemoAccount(ctx context.Context, sqlDB *sql.DB) (bool, int, error) {
	authStore := authdb.New(sqlDB, sqlDB)
	ledgerStore := ledgerdb.New(sqlDB, sqlDB)

	user, created, err := ensureDemoUser(ctx, authStore)
	if err != nil {
		return false, 0, err
	}

	existing, err := ledgerStore.FindBilling(ctx, &ledger.BillingFilter{UserIDs: []int{user.ID}})
	if err != nil {
		return created, 0, err
	}

	ledgerService := ledger.NewService(ledgerStore)

	posted := 0
	for _, bill := range demoBills {
		b, err := ledger.ParseBilling(user.ID, string(bill.energyType), bill.units, bill.date)
		if err != nil {
			return created, posted, err
		}

		if hasBilling(existing, b) {
			continue
		}

		_, err = ledgerService.PostBilling(ctx, b)
		if err != nil {
			return created, posted, errors.Join(fmt.Errorf("failed to post %s bill", bill.date), err)
		}

		posted++
	}

	return created, posted, nil
}

func ensureDemoUser(ctx context.Context, authStore *authdb.Store) (auth.User, bool, error) {
	users, err := authStore.FindUsers(ctx, &auth.UserFilter{
		Emails: []email.Address{demoEmail},
	})
	if err != nil {
		return auth.User{}, false, err
	}

	if len(users) > 0 {
		return users[0], false, nil
	}

	authService, err := auth.NewService(authStore, auth.ServiceConfig{SessionExpiry: time.Minute})
	if err != nil {
		return auth.User{}, false, err
	}

	reg, err := auth.ParseRegistration(demoUsername, demoEmail, demoPassword, demoFullName)
	if err != nil {
		return auth.User{}, false, err
	}

	a, err := authService.Register(ctx, reg)
	if err != nil {
		return auth.User{}, false, err
	}

	// the session of the registration is not needed.
	err = authService.Revoke(ctx, a.Token)
	if err != nil {
		return auth.User{}, false, err
	}

	return a.User, true, nil
}

func hasBilling(entries []ledger.BillingEntry, b ledger.Billing) bool {
	for _, e := range entries {
		if e.EnergyType == b.EnergyType && e.UnitsConsumed == b.UnitsConsumed && e.Date.Equal(b.Date) {
			return true
		}
	}
	return false
}
