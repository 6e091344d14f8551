// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

var (
	// identifierRegex matches lowercase SQL identifiers that need no quoting.
	identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

	// hexDigestRegex matches a SHA-256 digest in hex.
	hexDigestRegex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Identifier validates a table or column name.
var Identifier = validation.NewStringRuleWithError(
	identifierRegex.MatchString,
	validation.NewError("validation_identifier", "must be a lowercase identifier"),
)

// HexDigest validates a 64-character hex digest.
var HexDigest = validation.NewStringRuleWithError(
	hexDigestRegex.MatchString,
	validation.NewError("validation_hex_digest", "must be a 64-character hex digest"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
