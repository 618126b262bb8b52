package auth

import (
	"github.com/willemschots/ecocredit/internal/email"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/krypto"
)

// Registration is the input for registering a new user.
type Registration struct {
	Username Username
	Email    email.Address
	Password Password
	FullName string
}

// ParseRegistration validates raw registration input. All invalid fields
// are reported at once in an errorz.InvalidInput.
func ParseRegistration(username, addr, password, fullName string) (Registration, error) {
	var (
		r    Registration
		errs errorz.InvalidInput
		err  error
	)

	r.Username, err = ParseUsername(username)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "username", Err: err})
	}

	r.Email, err = email.ParseAddress(addr)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "email", Err: err})
	}

	r.Password, err = ParsePassword(password)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "password", Err: err})
	}

	r.FullName, err = parseFullName(fullName)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "fullName", Err: err})
	}

	if len(errs) > 0 {
		return Registration{}, errs
	}

	return r, nil
}

// Credentials is the input for authenticating a user.
type Credentials struct {
	Email    email.Address
	Password Password
}

// ParseCredentials validates raw credentials. Only the shape of the email
// address is checked, the password is accepted as long as it is not empty.
// A password that is too short or too long will simply not match.
func ParseCredentials(addr, password string) (Credentials, error) {
	var (
		c    Credentials
		errs errorz.InvalidInput
		err  error
	)

	c.Email, err = email.ParseAddress(addr)
	if err != nil {
		errs = append(errs, errorz.Keyed{Key: "email", Err: err})
	}

	if password == "" || len(password) > maxPasswordBytes {
		errs = append(errs, errorz.Keyed{Key: "password", Err: ErrInvalidPassword})
	} else {
		c.Password = Password{plain: []byte(password)}
	}

	if len(errs) > 0 {
		return Credentials{}, errs
	}

	return c, nil
}

// Authenticated is the result of a successful registration or authentication.
// Token must be handed to the client, it is not recoverable afterwards.
type Authenticated struct {
	User  User
	Token krypto.Token
}
