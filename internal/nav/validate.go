package nav

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dgnsrekt/voicedeck/internal/errs"
)

// NonEmpty rejects blank input.
func NonEmpty(field string) Validator {
	return ValidatorFunc(func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errs.Invalid(field, "must not be empty")
		}
		return nil
	})
}

// MaxLength rejects input longer than n characters.
func MaxLength(field string, n int) Validator {
	return ValidatorFunc(func(s string) error {
		if l := utf8.RuneCountInString(s); n > 0 && l > n {
			return errs.Invalid(field, "too long (%d characters, max %d)", l, n)
		}
		return nil
	})
}

// ExistingFile accepts a cleanable path to a regular file.
func ExistingFile(field string) Validator {
	return ValidatorFunc(func(s string) error {
		p, err := CleanPath(s)
		if err != nil {
			return err
		}
		info, err := os.Stat(p)
		if err != nil {
			return errs.Invalid(field, "file not found: %s", p)
		}
		if info.IsDir() {
			return errs.Invalid(field, "%s is a directory", p)
		}
		return nil
	})
}

// All runs validators in order and returns the first failure.
func All(vs ...Validator) Validator {
	return ValidatorFunc(func(s string) error {
		for _, v := range vs {
			if v == nil {
				continue
			}
			if err := v.Validate(s); err != nil {
				return err
			}
		}
		return nil
	})
}
