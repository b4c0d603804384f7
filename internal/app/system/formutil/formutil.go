// Package formutil reads request fields from either a JSON object body or a
// form-encoded body into one flat field set.
//
// Example usage:
//
//	f, err := formutil.Parse(r)
//	if err != nil {
//		// malformed body
//	}
//	email := f.Get("email")
//	_, force := f.Lookup("force")
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// MaxBodyBytes caps how much of a request body is read.
const MaxBodyBytes = 64 << 10

// ErrMalformed reports a body that could not be decoded.
var ErrMalformed = errors.New("malformed request body")

// Fields holds request values by name. A present field may be empty.
type Fields map[string]string

// Get returns the value of name, or "".
func (f Fields) Get(name string) string { return f[name] }

// Lookup returns the value of name and whether it was sent at all.
func (f Fields) Lookup(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// Parse decodes r's body. JSON bodies must be a single object; scalar
// members are converted to their string form and null marks a field as
// present but empty. Anything else is parsed as a form (query values
// included).
func Parse(r *http.Request) (Fields, error) {
	if isJSON(r.Header.Get("Content-Type")) {
		return parseJSON(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	}

	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(Fields, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			out[k] = vs[0]
		} else {
			out[k] = ""
		}
	}
	return out, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func parseJSON(body io.Reader) (Fields, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Fields{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make(Fields, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("%w: field %q must be a scalar", ErrMalformed, k)
		}
	}
	return out, nil
}
