package errors

import (
	"math"
	"strings"
	"unicode"
)

// Positive returns an INVALID_PARAMETER error unless v is a finite number
// strictly greater than zero.
func Positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidParameter, "%s must be positive, got %v", name, v)
	}
	return nil
}

// InRange returns an INVALID_PARAMETER error unless lo <= v <= hi.
func InRange(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return New(ErrCodeInvalidParameter, "%s must be within [%v, %v], got %v", name, lo, hi, v)
	}
	return nil
}

// AtLeast returns an INVALID_PARAMETER error unless v >= lo.
func AtLeast(name string, v, lo int) error {
	if v < lo {
		return New(ErrCodeInvalidParameter, "%s must be at least %d, got %d", name, lo, v)
	}
	return nil
}

// ValidateOutputPath validates an output base path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - Must not end with a path separator (a file name is required)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return New(ErrCodeInvalidPath, "output path must name a file, got directory %q", path)
	}

	return nil
}
