package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/ecocredit/internal/errorz"
)

const maxBodyBytes = 1 << 20

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	s          *Server
	req        func(*http.Request) (IN, error)
	target     func(context.Context, IN) (OUT, error)
	res        func(result[IN, OUT]) error
	statusCode int
}

// result is the result of a succesful request.
// it contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	s    *Server
	r    *http.Request
	w    http.ResponseWriter
	code int
	in   IN
	out  OUT
}

// mapBoth creates a HTTP Handler that:
// 1. Maps the request to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Writes the output of type OUT to the response as JSON.
//
// Errors are written using the server error handler.
func mapBoth[IN, OUT any](s *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](s, r)
		},
		target:     targetFunc,
		res:        defaultResponse[IN, OUT],
		statusCode: http.StatusOK,
	}
}

// mapResponse creates a HTTP Handler that:
// 1. Calls the target func.
// 2. Writes the returned value of type OUT to the response as JSON.
//
// Errors are written using the server error handler.
func mapResponse[OUT any](s *Server, targetFunc func(context.Context) (OUT, error)) *mapper[struct{}, OUT] {
	return &mapper[struct{}, OUT]{
		s: s,
		req: func(r *http.Request) (struct{}, error) {
			return struct{}{}, nil
		},
		target: func(ctx context.Context, _ struct{}) (OUT, error) {
			return targetFunc(ctx)
		},
		res:        defaultResponse[struct{}, OUT],
		statusCode: http.StatusOK,
	}
}

// status sets the status code passed to the response function.
func (e *mapper[IN, OUT]) status(code int) *mapper[IN, OUT] {
	e.statusCode = code
	return e
}

func (e *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := e.req(r)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}

	out, err := e.target(r.Context(), in)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}

	result := result[IN, OUT]{
		s:    e.s,
		r:    r,
		w:    w,
		code: e.statusCode,
		in:   in,
		out:  out,
	}

	err = e.res(result)
	if err != nil {
		e.s.handleError(w, r, err)
		return
	}
}

// pathWildcards are the wildcards used in the registered patterns.
var pathWildcards = []string{"userID"}

// defaultRequest is the default way to map a request to a struct.
// GET requests decode the path values and the query using the "schema"
// struct tags, other requests decode a JSON body using the "json" struct tags.
func defaultRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN

	if r.Method == http.MethodGet {
		vals := r.URL.Query()
		for _, name := range pathWildcards {
			if v := r.PathValue(name); v != "" {
				vals.Set(name, v)
			}
		}

		err := s.decoder.Decode(&in, vals)
		return in, decodeError(err)
	}

	if r.Body == nil || r.Body == http.NoBody {
		return in, nil
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	err := dec.Decode(&in)
	if errors.Is(err, io.EOF) {
		// empty body.
		return in, nil
	}
	if err != nil {
		return in, errorz.InvalidInput{errorz.Keyed{Key: "body", Err: jsonError(err)}}
	}

	return in, nil
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}

// jsonError hides the Go type names that encoding/json reports.
func jsonError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("field %s has the wrong type", typeErr.Field)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return errors.New("malformed JSON")
	}

	return err
}

// defaultResponse is the default way to write a response to the client.
func defaultResponse[IN, OUT any](r result[IN, OUT]) error {
	r.s.writeJSON(r.w, r.r, r.code, r.out)
	return nil
}
