package errorz

import "strings"

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Fields returns the message of every Keyed error, indexed by key.
// Errors without a key are collected under the empty key.
func (e InvalidInput) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, err := range e {
		k, ok := err.(Keyed)
		if !ok {
			out[""] = err.Error()
			continue
		}
		out[k.Key] = k.Err.Error()
	}
	return out
}

// Keyed attaches the name of an input field to an error.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	return k.Key + ": " + k.Err.Error()
}

func (k Keyed) Unwrap() error {
	return k.Err
}
