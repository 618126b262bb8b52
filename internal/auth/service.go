package auth

import (
	"context"
	"errors"
	"time"

	"github.com/willemschots/ecocredit/internal/email"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/krypto"
)

var (
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrInvalidCredentials does not say whether the user or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// SessionExpiry is the duration a session is valid after it was issued.
	SessionExpiry time.Duration
}

// Service registers and authenticates users and manages their sessions.
type Service struct {
	store Store
	cfg   ServiceConfig

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Register creates a new user with a zero credit balance and starts a session for it.
// If a user with the same username or email address exists, ErrDuplicateUser is returned.
func (s *Service) Register(ctx context.Context, r Registration) (Authenticated, error) {
	pwdHash, err := r.Password.Hash()
	if err != nil {
		return Authenticated{}, err
	}

	now := s.now()
	user := User{
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: pwdHash,
		FullName:     r.FullName,
		Credits:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token krypto.Token
	err = s.inTx(ctx, func(tx Tx) error {
		for _, filter := range []*UserFilter{
			{Emails: []email.Address{user.Email}},
			{Usernames: []Username{user.Username}},
		} {
			users, txErr := tx.FindUsers(filter)
			if txErr != nil {
				return txErr
			}

			if len(users) > 0 {
				return ErrDuplicateUser
			}
		}

		txErr := tx.CreateUser(&user)
		if errors.Is(txErr, errorz.ErrUniqueViolated) {
			return ErrDuplicateUser
		}
		if txErr != nil {
			return txErr
		}

		token, txErr = s.startSession(tx, user.ID, now)
		return txErr
	})
	if err != nil {
		return Authenticated{}, err
	}

	return Authenticated{User: user, Token: token}, nil
}

// Authenticate checks the credentials and starts a new session when they are valid.
// It returns ErrInvalidCredentials for both unknown addresses and wrong passwords.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (Authenticated, error) {
	users, err := s.store.FindUsers(ctx, &UserFilter{
		Emails: []email.Address{c.Email},
	})
	if err != nil {
		return Authenticated{}, err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing differences
		// that could result in user enumeration attacks.
		_ = c.Password.Match(s.comparisonHash)
		return Authenticated{}, ErrInvalidCredentials
	}

	user := users[0]
	if !c.Password.Match(user.PasswordHash) {
		return Authenticated{}, ErrInvalidCredentials
	}

	var token krypto.Token
	err = s.inTx(ctx, func(tx Tx) error {
		var txErr error
		token, txErr = s.startSession(tx, user.ID, s.now())
		return txErr
	})
	if err != nil {
		return Authenticated{}, err
	}

	return Authenticated{User: user, Token: token}, nil
}

// Verify returns the user the token was issued to. It returns ErrUnauthenticated
// if no session exists for the token or the session expired. Expired sessions
// are deleted.
func (s *Service) Verify(ctx context.Context, token krypto.Token) (User, error) {
	sessions, err := s.store.FindSessions(ctx, &SessionFilter{
		TokenDigests: []string{token.Digest()},
	})
	if err != nil {
		return User{}, err
	}

	if len(sessions) != 1 {
		return User{}, ErrUnauthenticated
	}

	sess := sessions[0]
	if sess.IsExpired(s.now()) {
		err = s.inTx(ctx, func(tx Tx) error {
			return tx.DeleteSessions(&SessionFilter{IDs: []int{sess.ID}})
		})
		if err != nil {
			return User{}, err
		}

		return User{}, ErrUnauthenticated
	}

	users, err := s.store.FindUsers(ctx, &UserFilter{
		IDs: []int{sess.UserID},
	})
	if err != nil {
		return User{}, err
	}

	// the user could have been deleted in the meantime.
	if len(users) != 1 {
		return User{}, ErrUnauthenticated
	}

	return users[0], nil
}

// Revoke ends the session of the token. Revoking an unknown or
// already revoked token is not an error.
func (s *Service) Revoke(ctx context.Context, token krypto.Token) error {
	return s.inTx(ctx, func(tx Tx) error {
		return tx.DeleteSessions(&SessionFilter{
			TokenDigests: []string{token.Digest()},
		})
	})
}

func (s *Service) startSession(tx Tx, userID int, now time.Time) (krypto.Token, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return krypto.Token{}, err
	}

	err = tx.CreateSession(&Session{
		TokenDigest: token.Digest(),
		UserID:      userID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionExpiry),
	})
	if err != nil {
		return krypto.Token{}, err
	}

	return token, nil
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
