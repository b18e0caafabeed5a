// Package validation checks identifiers received from users and hosts.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// MaxNameLength bounds host and application names.
const MaxNameLength = 128

var (
	// ErrInputEmpty indicates a required identifier is missing.
	ErrInputEmpty = errors.New("input is empty")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
)

var validNamespace = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]*$`)

// ValidateName validates a host or application name. Hosts name their
// applications freely, so only empty, oversized, non-UTF-8 and
// control-character names are rejected.
func ValidateName(name string) error {
	if name == "" {
		return ErrInputEmpty
	}
	if len(name) > MaxNameLength {
		return ErrInputTooLong
	}
	if !utf8.ValidString(name) {
		return ErrInputInvalid
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrInputInvalid
		}
	}
	return nil
}

// ValidateKey validates both halves of an application key.
func ValidateKey(key models.AppKey) error {
	if err := ValidateName(key.Host); err != nil {
		return fmt.Errorf("host %q: %w", key.Host, err)
	}
	if err := ValidateName(key.Name); err != nil {
		return fmt.Errorf("app %q: %w", key.Name, err)
	}
	return nil
}

// ValidateProjectID validates a GitLab project path such as group/sub/project.
// Numeric project ids are accepted too.
func ValidateProjectID(id string) error {
	if id == "" {
		return ErrInputEmpty
	}
	if strings.ContainsAny(id, "\x00\n\r ") {
		return ErrInputInvalid
	}
	for _, segment := range strings.Split(id, "/") {
		if segment == ".." || !validNamespace.MatchString(segment) {
			return ErrInputInvalid
		}
	}
	return nil
}

// IsInvalid reports whether err came from this package.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInputEmpty) || errors.Is(err, ErrInputTooLong) || errors.Is(err, ErrInputInvalid)
}
