// Package link parses matrix://install deep links into install requests.
package link

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/ensigniasec/matrix-installer/internal/validate"
)

const (
	scheme = "matrix"
	action = "install"

	hubMessage = "Hub must be a valid http or https URL"
)

// ErrInvalidLink is wrapped by every Parse error.
var ErrInvalidLink = errors.New("invalid link")

// Request is a validated install request.
type Request struct {
	Entity string `validate:"required,maxbytes=256"`
	Alias  string `validate:"required,maxbytes=64,alias"`
	Hub    string `validate:"omitempty,hub_url"`
}

// Parse validates raw as matrix://install?entity=..&alias=..[&hub=..].
func Parse(raw string) (Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Request{}, invalid("Invalid URL format")
	}
	if u.Scheme != scheme {
		return Request{}, invalid("URL scheme must be 'matrix://'")
	}
	if u.Host != action {
		return Request{}, invalid("Only 'matrix://install' action is supported")
	}

	q := u.Query()
	if !q.Has("entity") {
		return Request{}, invalid("Required parameter 'entity' is missing")
	}
	if !q.Has("alias") {
		return Request{}, invalid("Required parameter 'alias' is missing")
	}
	req := Request{
		Entity: q.Get("entity"),
		Alias:  q.Get("alias"),
		Hub:    q.Get("hub"),
	}
	if err := validate.Struct(req); err != nil {
		return Request{}, fieldError(err)
	}
	// A hub parameter that is present must be a URL, even when empty.
	if q.Has("hub") && validate.Var(req.Hub, "hub_url") != nil {
		return Request{}, invalid(hubMessage)
	}
	return req, nil
}

// fieldError maps the first validation failure to its user-facing message.
func fieldError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Entity":
		return invalid("Parameter 'entity' is invalid")
	case fe.Field() == "Alias" && fe.Tag() == "alias":
		return invalid("Alias contains invalid characters. Use only A-Z, a-z, 0-9, -, _")
	case fe.Field() == "Alias":
		return invalid("Parameter 'alias' is invalid")
	case fe.Field() == "Hub":
		return invalid(hubMessage)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLink, fe.Error())
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidLink, msg)
}

// String renders the request back into link form.
func (r Request) String() string {
	q := url.Values{}
	q.Set("entity", r.Entity)
	q.Set("alias", r.Alias)
	if r.Hub != "" {
		q.Set("hub", r.Hub)
	}
	u := url.URL{Scheme: scheme, Host: action, RawQuery: q.Encode()}
	return u.String()
}
