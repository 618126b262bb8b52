package testerr

import "errors"

// Calltracker is a helper struct to track calls to a dependency.
// It can be used to simulate failing dependencies.
// The zero value is ready to use and will never fail.
type Calltracker struct {
	CallIndex         int
	ShouldFail        bool
	Err               error
	FailAllAfterIndex bool
	FailAtIndex       int
}

// NewFailingDeps creates calltrackers that fail at every point of a call
// sequence of length expectCalls. For each index there are two trackers:
//   - one that fails once at the index and succeeds afterwards.
//   - one that fails at the index and on every call after it.
func NewFailingDeps(err error, expectCalls int) []Calltracker {
	trackers := make([]Calltracker, 0, expectCalls*2)
	for i := 0; i < expectCalls; i++ {
		for _, all := range []bool{true, false} {
			trackers = append(trackers, Calltracker{
				CallIndex:         -1,
				ShouldFail:        true,
				Err:               err,
				FailAllAfterIndex: all,
				FailAtIndex:       i,
			})
		}
	}

	return trackers
}

// next registers a call and reports the error it should fail with, if any.
func (ct *Calltracker) next() error {
	if !ct.ShouldFail {
		return nil
	}

	ct.CallIndex++

	if ct.FailAtIndex == ct.CallIndex {
		return ct.Err
	}

	if ct.FailAllAfterIndex && ct.CallIndex > ct.FailAtIndex {
		return ct.Err
	}

	return nil
}

// MaybeFailErrFunc returns the tracked error or the result of f.
func MaybeFailErrFunc(ct *Calltracker, f func() error) error {
	if err := ct.next(); err != nil {
		return err
	}

	return f()
}

// MaybeFail returns the tracked error or the results of f.
func MaybeFail[T any](ct *Calltracker, f func() (T, error)) (T, error) {
	if err := ct.next(); err != nil {
		var zero T
		return zero, err
	}

	return f()
}

// Err is the error returned by failing calltrackers in tests.
var Err = errors.New("test error")
