package validate

// This package adds struct and field validation as a thin wrapper around the go-playground/validator package.
//
// e.g. internal/link/link.go
//   type Request struct {
//       Entity string `validate:"required,maxbytes=256"`
//       Alias  string `validate:"required,maxbytes=64,alias"`
//       Hub    string `validate:"omitempty,hub_url"`
//   }
//
// Custom tags registered here: alias, hub_url, maxbytes.

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// aliasPattern restricts install aliases to characters that are safe as CLI arguments and file names.
var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`) //nolint:gochecknoglobals // compiled once.

// validatorInstance is a shared validator for the application.
// It is initialized once and reused to avoid repeated allocations.
//
//nolint:gochecknoglobals // Shared validator singleton.
var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// get returns a process-wide singleton of the validator.
func get() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		// Registration only fails on an empty tag or nil func.
		_ = validatorInst.RegisterValidation("alias", func(fl validator.FieldLevel) bool {
			return aliasPattern.MatchString(fl.Field().String())
		})
		_ = validatorInst.RegisterValidation("hub_url", func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
		})
		// max counts runes; link limits are in bytes.
		_ = validatorInst.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= n
		})
	})
	return validatorInst
}

// Struct validates a struct using the shared validator instance.
func Struct(v any) error {
	return get().Struct(v)
}

// Var validates a single variable against the provided tag constraints.
func Var(field any, tag string) error {
	return get().Var(field, tag)
}
