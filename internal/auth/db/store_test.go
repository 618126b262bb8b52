package db_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/auth/db"
	"github.com/willemschots/ecocredit/internal/db/testdb"
	"github.com/willemschots/ecocredit/internal/email"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/krypto"
)

func Test_Tx_CreateUser(t *testing.T) {
	t.Run("ok, create and find user", func(t *testing.T) {
		store := storeForTest(t)

		user := testUser(t, nil)
		inTx(t, store, func(tx auth.Tx) {
			err := tx.CreateUser(&user)
			if err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		})

		want := testUser(t, func(u *auth.User) {
			u.ID = 1
		})

		if !reflect.DeepEqual(user, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", user, want)
		}

		assertFindUsers(t, store, &auth.UserFilter{IDs: []int{1}}, []auth.User{want})
	})

	t.Run("ok, full name is optional", func(t *testing.T) {
		store := storeForTest(t)

		user := testUser(t, func(u *auth.User) {
			u.FullName = ""
		})
		inTx(t, store, func(tx auth.Tx) {
			err := tx.CreateUser(&user)
			if err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		})

		assertFindUsers(t, store, &auth.UserFilter{IDs: []int{user.ID}}, []auth.User{user})
	})

	t.Run("ok, ids are assigned monotonically", func(t *testing.T) {
		store := storeForTest(t)

		users := []auth.User{
			testUser(t, nil),
			testUser(t, func(u *auth.User) {
				u.Username = "bob"
				u.Email = "bob@example.com"
			}),
		}

		inTx(t, store, func(tx auth.Tx) {
			for i := range users {
				err := tx.CreateUser(&users[i])
				if err != nil {
					t.Fatalf("failed to create user: %v", err)
				}
			}
		})

		if users[0].ID != 1 || users[1].ID != 2 {
			t.Errorf("got ids %d and %d, want 1 and 2", users[0].ID, users[1].ID)
		}
	})

	uniqueTests := map[string]func(u *auth.User){
		"fail, duplicate username": func(u *auth.User) {
			u.Email = "other@example.com"
		},
		"fail, duplicate email": func(u *auth.User) {
			u.Username = "other"
		},
	}

	for name, mf := range uniqueTests {
		t.Run(name, func(t *testing.T) {
			store := storeForTest(t)

			first := testUser(t, nil)
			inTx(t, store, func(tx auth.Tx) {
				err := tx.CreateUser(&first)
				if err != nil {
					t.Fatalf("failed to create user: %v", err)
				}
			})

			tx, err := store.BeginTx(context.Background())
			if err != nil {
				t.Fatalf("failed to begin tx: %v", err)
			}
			defer tx.Rollback()

			second := testUser(t, mf)
			err = tx.CreateUser(&second)
			if !errors.Is(err, errorz.ErrUniqueViolated) {
				t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrUniqueViolated, err)
			}
		})
	}

	t.Run("fail, id already set", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback()

		user := testUser(t, func(u *auth.User) {
			u.ID = 1
		})

		err = tx.CreateUser(&user)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

func Test_Store_FindUsers(t *testing.T) {
	store := storeForTest(t)

	alice := testUser(t, nil)
	bob := testUser(t, func(u *auth.User) {
		u.Username = "bob"
		u.Email = "bob@example.com"
	})

	inTx(t, store, func(tx auth.Tx) {
		for _, u := range []*auth.User{&alice, &bob} {
			err := tx.CreateUser(u)
			if err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}
	})

	tests := map[string]struct {
		filter *auth.UserFilter
		want   []auth.User
	}{
		"ok, nil filter":      {filter: nil, want: []auth.User{alice, bob}},
		"ok, empty filter":    {filter: &auth.UserFilter{}, want: []auth.User{alice, bob}},
		"ok, by id":           {filter: &auth.UserFilter{IDs: []int{bob.ID}}, want: []auth.User{bob}},
		"ok, by username":     {filter: &auth.UserFilter{Usernames: []auth.Username{"alice"}}, want: []auth.User{alice}},
		"ok, by email":        {filter: &auth.UserFilter{Emails: []email.Address{"bob@example.com"}}, want: []auth.User{bob}},
		"ok, email is exact":  {filter: &auth.UserFilter{Emails: []email.Address{"Bob@example.com"}}, want: []auth.User{}},
		"ok, all must match":  {filter: &auth.UserFilter{IDs: []int{alice.ID}, Usernames: []auth.Username{"bob"}}, want: []auth.User{}},
		"ok, multiple values": {filter: &auth.UserFilter{IDs: []int{bob.ID, alice.ID}}, want: []auth.User{alice, bob}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assertFindUsers(t, store, tc.filter, tc.want)
		})
	}
}

func Test_Sessions(t *testing.T) {
	t.Run("ok, create, find and delete sessions", func(t *testing.T) {
		store := storeForTest(t)
		user := createUser(t, store)

		sessions := []auth.Session{
			testSession(user.ID, "digest-1", now(t, 0)),
			testSession(user.ID, "digest-2", now(t, 1)),
		}

		inTx(t, store, func(tx auth.Tx) {
			for i := range sessions {
				err := tx.CreateSession(&sessions[i])
				if err != nil {
					t.Fatalf("failed to create session: %v", err)
				}
			}
		})

		if sessions[0].ID != 1 || sessions[1].ID != 2 {
			t.Fatalf("got ids %d and %d, want 1 and 2", sessions[0].ID, sessions[1].ID)
		}

		assertFindSessions(t, store, &auth.SessionFilter{TokenDigests: []string{"digest-2"}}, sessions[1:])
		assertFindSessions(t, store, &auth.SessionFilter{UserIDs: []int{user.ID}}, sessions)

		inTx(t, store, func(tx auth.Tx) {
			err := tx.DeleteSessions(&auth.SessionFilter{TokenDigests: []string{"digest-1"}})
			if err != nil {
				t.Fatalf("failed to delete session: %v", err)
			}

			// deleting again is not an error.
			err = tx.DeleteSessions(&auth.SessionFilter{TokenDigests: []string{"digest-1"}})
			if err != nil {
				t.Fatalf("failed to delete session: %v", err)
			}
		})

		assertFindSessions(t, store, &auth.SessionFilter{UserIDs: []int{user.ID}}, sessions[1:])
	})

	t.Run("fail, duplicate digest", func(t *testing.T) {
		store := storeForTest(t)
		user := createUser(t, store)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback()

		first := testSession(user.ID, "digest", now(t, 0))
		err = tx.CreateSession(&first)
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		second := testSession(user.ID, "digest", now(t, 0))
		err = tx.CreateSession(&second)
		if !errors.Is(err, errorz.ErrUniqueViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrUniqueViolated, err)
		}
	})

	t.Run("fail, unknown user", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback()

		sess := testSession(42, "digest", now(t, 0))
		err = tx.CreateSession(&sess)
		if !errors.Is(err, errorz.ErrForeignKeyViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrForeignKeyViolated, err)
		}
	})

	t.Run("fail, delete with empty filter", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}
		defer tx.Rollback()

		err = tx.DeleteSessions(&auth.SessionFilter{})
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

func inTx(t *testing.T, store *db.Store, f func(tx auth.Tx)) {
	t.Helper()

	tx, err := store.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	f(tx)

	err = tx.Commit()
	if err != nil {
		t.Fatalf("failed to commit tx: %v", err)
	}
}

func assertFindUsers(t *testing.T, store *db.Store, filter *auth.UserFilter, want []auth.User) {
	t.Helper()

	got, err := store.FindUsers(context.Background(), filter)
	if err != nil {
		t.Fatalf("failed to find users: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
	}
}

func assertFindSessions(t *testing.T, store *db.Store, filter *auth.SessionFilter, want []auth.Session) {
	t.Helper()

	got, err := store.FindSessions(context.Background(), filter)
	if err != nil {
		t.Fatalf("failed to find sessions: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
	}
}

func createUser(t *testing.T, store *db.Store) auth.User {
	t.Helper()

	user := testUser(t, nil)
	inTx(t, store, func(tx auth.Tx) {
		err := tx.CreateUser(&user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	})

	return user
}

func testUser(t *testing.T, mf func(*auth.User)) auth.User {
	t.Helper()

	hash, err := krypto.ParseArgon2Hash("$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0")
	if err != nil {
		t.Fatalf("failed to parse hash: %v", err)
	}

	u := auth.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		FullName:     "Alice Example",
		Credits:      0,
		CreatedAt:    now(t, 0),
		UpdatedAt:    now(t, 1),
	}

	if mf != nil {
		mf(&u)
	}

	return u
}

func testSession(userID int, digest string, createdAt time.Time) auth.Session {
	return auth.Session{
		TokenDigest: digest,
		UserID:      userID,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(7 * 24 * time.Hour),
	}
}

func now(t *testing.T, i int) time.Time {
	t.Helper()
	if i > 9 {
		t.Fatalf("invalid time index: %d", i)
	}

	ts, err := time.Parse(time.RFC3339, fmt.Sprintf("2024-06-01T00:00:0%dZ", i))
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return ts
}

func storeForTest(t *testing.T) *db.Store {
	t.Helper()

	testDB := testdb.RunWhile(t, true)
	return db.New(testDB, testDB)
}
