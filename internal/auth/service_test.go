package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/auth/db"
	"github.com/willemschots/ecocredit/internal/db/testdb"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/errorz/testerr"
	"github.com/willemschots/ecocredit/internal/krypto"
)

const sessionExpiry = 7 * 24 * time.Hour

func Test_Service_Register(t *testing.T) {
	t.Run("ok, register user", func(t *testing.T) {
		st := newServiceTest(t)

		got, err := st.svc.Register(context.Background(), testRegistration(t, nil))
		if err != nil {
			t.Fatalf("failed to register user: %v", err)
		}

		if got.User.ID != 1 {
			t.Errorf("got user id %d, want 1", got.User.ID)
		}

		if got.User.Credits != 0 {
			t.Errorf("got credits %d, want 0", got.User.Credits)
		}

		if got.User.Username != "alice" || got.User.Email != "alice@example.com" || got.User.FullName != "Alice Example" {
			t.Errorf("unexpected user %#v", got.User)
		}

		if !got.User.CreatedAt.Equal(st.now) || !got.User.UpdatedAt.Equal(st.now) {
			t.Errorf("got timestamps %v and %v, want %v", got.User.CreatedAt, got.User.UpdatedAt, st.now)
		}

		// the password is stored as a hash.
		if !must(auth.ParsePassword("secret123")).Match(got.User.PasswordHash) {
			t.Errorf("expected password to match stored hash")
		}

		// the issued token identifies the user.
		user, err := st.svc.Verify(context.Background(), got.Token)
		if err != nil {
			t.Fatalf("failed to verify token: %v", err)
		}

		if user.ID != got.User.ID {
			t.Errorf("got user %d, want %d", user.ID, got.User.ID)
		}
	})

	t.Run("ok, identities differing only in case are distinct", func(t *testing.T) {
		st := newServiceTest(t)
		st.register(testRegistration(t, nil))

		_, err := st.svc.Register(context.Background(), testRegistration(t, func(r *auth.Registration) {
			r.Username = "Alice"
			r.Email = "Alice@example.com"
		}))
		if err != nil {
			t.Fatalf("failed to register user: %v", err)
		}
	})

	duplicateTests := map[string]func(r *auth.Registration){
		"fail, duplicate email": func(r *auth.Registration) {
			r.Username = "bob"
		},
		"fail, duplicate username": func(r *auth.Registration) {
			r.Email = "bob@example.com"
		},
		"fail, duplicate username and email": func(r *auth.Registration) {
			r.FullName = "Somebody Else"
		},
	}

	for name, mf := range duplicateTests {
		t.Run(name, func(t *testing.T) {
			st := newServiceTest(t)
			st.register(testRegistration(t, nil))

			_, err := st.svc.Register(context.Background(), testRegistration(t, mf))
			if !errors.Is(err, auth.ErrDuplicateUser) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrDuplicateUser, err)
			}

			// nothing was created.
			users, err := st.store.FindUsers(context.Background(), nil)
			if err != nil {
				t.Fatalf("failed to find users: %v", err)
			}

			if len(users) != 1 {
				t.Errorf("expected 1 user, got %d", len(users))
			}
		})
	}

	// BeginTx, FindUsers (email), FindUsers (username), CreateUser, CreateSession, Commit.
	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 6) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			st.store.tracker = &tracker

			_, err := st.svc.Register(context.Background(), testRegistration(t, nil))
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}
}

func Test_Service_Authenticate(t *testing.T) {
	t.Run("ok, right credentials", func(t *testing.T) {
		st := newServiceTest(t)
		registered := st.register(testRegistration(t, nil))

		got, err := st.svc.Authenticate(context.Background(), testCredentials(t, "alice@example.com", "secret123"))
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if got.User.ID != registered.User.ID {
			t.Errorf("got user %d, want %d", got.User.ID, registered.User.ID)
		}

		// a new session was started.
		if got.Token == registered.Token {
			t.Errorf("expected a new token")
		}

		for _, tok := range []krypto.Token{registered.Token, got.Token} {
			_, err := st.svc.Verify(context.Background(), tok)
			if err != nil {
				t.Errorf("failed to verify token: %v", err)
			}
		}
	})

	failTests := map[string]auth.Credentials{
		"fail, wrong password": testCredentials(t, "alice@example.com", "wrongPassword"),
		"fail, unknown email":  testCredentials(t, "bob@example.com", "secret123"),
		"fail, email is exact": testCredentials(t, "Alice@example.com", "secret123"),
		"fail, short password": testCredentials(t, "alice@example.com", "s"),
	}

	for name, creds := range failTests {
		t.Run(name, func(t *testing.T) {
			st := newServiceTest(t)
			st.register(testRegistration(t, nil))

			_, err := st.svc.Authenticate(context.Background(), creds)
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrInvalidCredentials, err)
			}
		})
	}

	// FindUsers, BeginTx, CreateSession, Commit.
	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 4) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			st.register(testRegistration(t, nil))
			st.store.tracker = &tracker

			_, err := st.svc.Authenticate(context.Background(), testCredentials(t, "alice@example.com", "secret123"))
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}
}

func Test_Service_Verify(t *testing.T) {
	t.Run("ok, session valid until just before expiry", func(t *testing.T) {
		st := newServiceTest(t)
		registered := st.register(testRegistration(t, nil))

		st.now = st.now.Add(sessionExpiry - time.Nanosecond)

		got, err := st.svc.Verify(context.Background(), registered.Token)
		if err != nil {
			t.Fatalf("failed to verify: %v", err)
		}

		if got.ID != registered.User.ID {
			t.Errorf("got user %d, want %d", got.ID, registered.User.ID)
		}
	})

	t.Run("fail, unknown token", func(t *testing.T) {
		st := newServiceTest(t)
		st.register(testRegistration(t, nil))

		_, err := st.svc.Verify(context.Background(), must(krypto.GenerateToken()))
		if !errors.Is(err, auth.ErrUnauthenticated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrUnauthenticated, err)
		}
	})

	expiredTests := map[string]time.Duration{
		"fail, expires at exactly now": sessionExpiry,
		"fail, expired in the past":    sessionExpiry + time.Hour,
	}

	for name, elapsed := range expiredTests {
		t.Run(name, func(t *testing.T) {
			st := newServiceTest(t)
			registered := st.register(testRegistration(t, nil))

			st.now = st.now.Add(elapsed)

			_, err := st.svc.Verify(context.Background(), registered.Token)
			if !errors.Is(err, auth.ErrUnauthenticated) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrUnauthenticated, err)
			}

			// the expired session was deleted.
			sessions, err := st.store.FindSessions(context.Background(), &auth.SessionFilter{
				TokenDigests: []string{registered.Token.Digest()},
			})
			if err != nil {
				t.Fatalf("failed to find sessions: %v", err)
			}

			if len(sessions) != 0 {
				t.Errorf("expected expired session to be deleted, got %v", sessions)
			}

			// and stays unusable, even if the clock would go back.
			st.now = st.now.Add(-elapsed)
			_, err = st.svc.Verify(context.Background(), registered.Token)
			if !errors.Is(err, auth.ErrUnauthenticated) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrUnauthenticated, err)
			}
		})
	}

	// FindSessions, BeginTx, DeleteSessions, Commit.
	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 4) {
		t.Run("fail, store fails on expired session", func(t *testing.T) {
			st := newServiceTest(t)
			registered := st.register(testRegistration(t, nil))
			st.now = st.now.Add(sessionExpiry)
			st.store.tracker = &tracker

			_, err := st.svc.Verify(context.Background(), registered.Token)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}

	// FindSessions, FindUsers.
	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 2) {
		t.Run("fail, store fails on valid session", func(t *testing.T) {
			st := newServiceTest(t)
			registered := st.register(testRegistration(t, nil))
			st.store.tracker = &tracker

			_, err := st.svc.Verify(context.Background(), registered.Token)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}
}

func Test_Service_Revoke(t *testing.T) {
	t.Run("ok, revoke is idempotent", func(t *testing.T) {
		st := newServiceTest(t)
		registered := st.register(testRegistration(t, nil))

		for i := 0; i < 2; i++ {
			err := st.svc.Revoke(context.Background(), registered.Token)
			if err != nil {
				t.Fatalf("failed to revoke (attempt %d): %v", i, err)
			}
		}

		_, err := st.svc.Verify(context.Background(), registered.Token)
		if !errors.Is(err, auth.ErrUnauthenticated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", auth.ErrUnauthenticated, err)
		}
	})

	t.Run("ok, other sessions stay valid", func(t *testing.T) {
		st := newServiceTest(t)
		registered := st.register(testRegistration(t, nil))

		other, err := st.svc.Authenticate(context.Background(), testCredentials(t, "alice@example.com", "secret123"))
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		err = st.svc.Revoke(context.Background(), registered.Token)
		if err != nil {
			t.Fatalf("failed to revoke: %v", err)
		}

		_, err = st.svc.Verify(context.Background(), other.Token)
		if err != nil {
			t.Fatalf("failed to verify other token: %v", err)
		}
	})

	t.Run("ok, unknown token", func(t *testing.T) {
		st := newServiceTest(t)

		err := st.svc.Revoke(context.Background(), must(krypto.GenerateToken()))
		if err != nil {
			t.Fatalf("failed to revoke: %v", err)
		}
	})

	// BeginTx, DeleteSessions, Commit.
	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 3) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			registered := st.register(testRegistration(t, nil))
			st.store.tracker = &tracker

			err := st.svc.Revoke(context.Background(), registered.Token)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", testerr.Err, err)
			}
		})
	}
}

func Test_ParseRegistration(t *testing.T) {
	t.Run("ok, valid input", func(t *testing.T) {
		got, err := auth.ParseRegistration("eco_user-1", "eco@example.com", "123456", "  Eco User ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Username != "eco_user-1" || got.Email != "eco@example.com" || got.FullName != "Eco User" {
			t.Errorf("unexpected registration %#v", got)
		}
	})

	t.Run("ok, no full name", func(t *testing.T) {
		got, err := auth.ParseRegistration("eco", "eco@example.com", "123456", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.FullName != "" {
			t.Errorf("got full name %q, want empty", got.FullName)
		}
	})

	failTests := map[string]struct {
		username, email, password, fullName string
		wantKeys                            []string
	}{
		"fail, username too short":      {"ab", "eco@example.com", "123456", "", []string{"username"}},
		"fail, username too long":       {"abcdefghijklmnopqrstu", "eco@example.com", "123456", "", []string{"username"}},
		"fail, username with space":     {"eco user", "eco@example.com", "123456", "", []string{"username"}},
		"fail, username with non-ascii": {"éco", "eco@example.com", "123456", "", []string{"username"}},
		"fail, invalid email":           {"eco", "eco.example.com", "123456", "", []string{"email"}},
		"fail, short password":          {"eco", "eco@example.com", "12345", "", []string{"password"}},
		"fail, long full name":          {"eco", "eco@example.com", "123456", stringOfLen(101), []string{"fullName"}},
		"fail, everything":              {"", "", "", "", []string{"username", "email", "password"}},
	}

	for name, tc := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseRegistration(tc.username, tc.email, tc.password, tc.fullName)
			assertInvalidKeys(t, err, tc.wantKeys)
		})
	}
}

func Test_ParseCredentials(t *testing.T) {
	t.Run("ok, valid input", func(t *testing.T) {
		got, err := auth.ParseCredentials("eco@example.com", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Email != "eco@example.com" {
			t.Errorf("got email %q", got.Email)
		}
	})

	failTests := map[string]struct {
		email, password string
		wantKeys        []string
	}{
		"fail, invalid email":    {"eco", "secret123", []string{"email"}},
		"fail, empty password":   {"eco@example.com", "", []string{"password"}},
		"fail, too long password": {"eco@example.com", stringOfLen(513), []string{"password"}},
	}

	for name, tc := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseCredentials(tc.email, tc.password)
			assertInvalidKeys(t, err, tc.wantKeys)
		})
	}
}

func assertInvalidKeys(t *testing.T, err error, wantKeys []string) {
	t.Helper()

	var invalid errorz.InvalidInput
	if !errors.As(err, &invalid) {
		t.Fatalf("expected %T, got %v", invalid, err)
	}

	fields := invalid.Fields()
	if len(fields) != len(wantKeys) {
		t.Errorf("got fields %v, want keys %v", fields, wantKeys)
	}

	for _, key := range wantKeys {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected field %q in %v", key, fields)
		}
	}
}

type svcTest struct {
	t     *testing.T
	svc   *auth.Service
	store *testStore
	now   time.Time
}

func newServiceTest(t *testing.T) *svcTest {
	testDB := testdb.RunWhile(t, true)
	test := &svcTest{
		t: t,
		store: &testStore{
			store:   db.New(testDB, testDB),
			tracker: &testerr.Calltracker{}, // empty call trackers never fail.
		},
		now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	svc, err := auth.NewService(test.store, auth.ServiceConfig{
		SessionExpiry: sessionExpiry,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	svc.NowFunc = func() time.Time {
		return test.now
	}

	test.svc = svc

	return test
}

func (st *svcTest) register(r auth.Registration) auth.Authenticated {
	st.t.Helper()

	a, err := st.svc.Register(context.Background(), r)
	if err != nil {
		st.t.Fatalf("failed to register user: %v", err)
	}

	return a
}

func testRegistration(t *testing.T, mf func(*auth.Registration)) auth.Registration {
	t.Helper()

	r := must(auth.ParseRegistration("alice", "alice@example.com", "secret123", "Alice Example"))
	if mf != nil {
		mf(&r)
	}

	return r
}

func testCredentials(t *testing.T, email, password string) auth.Credentials {
	t.Helper()

	return must(auth.ParseCredentials(email, password))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// testStore wraps a real store but uses a testerr.Calltracker to
// possibly fail on certain method calls.
type testStore struct {
	store   auth.Store
	tracker *testerr.Calltracker
}

func (f *testStore) BeginTx(ctx context.Context) (auth.Tx, error) {
	return testerr.MaybeFail(f.tracker, func() (auth.Tx, error) {
		realTx, err := f.store.BeginTx(ctx)
		return &testTx{
			store: f,
			tx:    realTx,
		}, err
	})
}

func (f *testStore) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(f.tracker, func() ([]auth.User, error) {
		return f.store.FindUsers(ctx, filter)
	})
}

func (f *testStore) FindSessions(ctx context.Context, filter *auth.SessionFilter) ([]auth.Session, error) {
	return testerr.MaybeFail(f.tracker, func() ([]auth.Session, error) {
		return f.store.FindSessions(ctx, filter)
	})
}

type testTx struct {
	store *testStore
	tx    auth.Tx
}

func (tx *testTx) Commit() error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.Commit()
	})
}

func (tx *testTx) Rollback() error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.Rollback()
	})
}

func (tx *testTx) CreateUser(u *auth.User) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.CreateUser(u)
	})
}

func (tx *testTx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(tx.store.tracker, func() ([]auth.User, error) {
		return tx.tx.FindUsers(filter)
	})
}

func (tx *testTx) CreateSession(s *auth.Session) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.CreateSession(s)
	})
}

func (tx *testTx) FindSessions(filter *auth.SessionFilter) ([]auth.Session, error) {
	return testerr.MaybeFail(tx.store.tracker, func() ([]auth.Session, error) {
		return tx.tx.FindSessions(filter)
	})
}

func (tx *testTx) DeleteSessions(filter *auth.SessionFilter) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.DeleteSessions(filter)
	})
}
