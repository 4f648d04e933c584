// Package smartcode validates the taxonomy string stamped on every engine
// record and resolves the posting policy attached to its family.
package smartcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// A smart code is HERA.<DOMAIN>.<MODULE>...<VN>: at least five dot-separated
// segments with a numeric terminal version tag.
var codePattern = regexp.MustCompile(`^HERA\.[A-Z0-9]+(\.[A-Z0-9]+){3,}\.V[0-9]+$`)

var ErrInvalidSmartCode = errors.New("invalid_smart_code")

// Normalize trims the code, canonicalizes the version tag (v1 -> V1) and
// validates the result. The normalized code is what gets persisted.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty code", ErrInvalidSmartCode)
	}

	idx := strings.LastIndex(trimmed, ".")
	if idx > 0 {
		trimmed = trimmed[:idx+1] + strings.ToUpper(trimmed[idx+1:])
	}

	if !codePattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %s", ErrInvalidSmartCode, code)
	}
	return trimmed, nil
}

// Validate reports whether the code is a well-formed smart code.
func Validate(code string) error {
	_, err := Normalize(code)
	return err
}

// Family returns the code without its version tag. It is the registry key for
// policy dispatch: a V2 record resolves to the same family as its V1 siblings,
// so version bumps never change dispatch for existing consumers.
func Family(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return ""
	}
	idx := strings.LastIndex(normalized, ".")
	return normalized[:idx]
}

// Version returns the numeric version of a valid smart code, or 0.
func Version(code string) int {
	normalized, err := Normalize(code)
	if err != nil {
		return 0
	}
	idx := strings.LastIndex(normalized, ".V")
	version := 0
	for _, r := range normalized[idx+2:] {
		version = version*10 + int(r-'0')
	}
	return version
}
