package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength        = 128
	maxConcernLength     = 2000
	maxReasonLength      = 280
	maxDescriptionLength = 4000
	maxNotesLength       = 4000
	maxIssueLength       = 500
	maxCategoryLength    = 64
	minPasswordLength    = 8
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
			return isSafeText(fl.Field().String())
		})
		_ = engine.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return db.ValidRole(fl.Field().String())
		})
		_ = engine.RegisterValidation("level", func(fl validator.FieldLevel) bool {
			return db.ValidLevel(fl.Field().String())
		})
		_ = engine.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
			return db.ValidSeverity(fl.Field().String())
		})
		_ = engine.RegisterValidation("referralstatus", func(fl validator.FieldLevel) bool {
			return db.ValidReferralStatus(fl.Field().String())
		})
		_ = engine.RegisterValidation("submissionstatus", func(fl validator.FieldLevel) bool {
			return db.ValidSubmissionStatus(fl.Field().String())
		})
		_ = engine.RegisterValidation("nameoption", func(fl validator.FieldLevel) bool {
			return db.ValidNameOption(fl.Field().String())
		})
	})
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

// validateOptionalText allows empty input; multi-line text keeps its line breaks.
func validateOptionalText(label, text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(password) != password {
		return errors.New("password must not start or end with spaces")
	}
	return nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// isSafeText rejects control characters other than line breaks and tabs, and
// angle brackets. Names and concerns may contain any printable letters.
func isSafeText(text string) bool {
	for _, r := range text {
		switch r {
		case '\n', '\r', '\t':
			continue
		case '<', '>':
			return false
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return false
		}
	}
	return true
}
