package core

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"mediwatch/internal/types"
)

// Validator wraps go-playground/validator and registers domain-specific rules.
// A single instance is shared across handlers; the underlying validate struct
// caches struct metadata and is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
//
// Custom tags:
//   - emergency_category: the value must be one of the known emergency
//     categories (fall, choking, seizure, unconscious, distress, normal).
//   - frame_data: the value must look like a base64 JPEG/PNG data URL.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	// Registration only fails for nil funcs or empty tags, neither of which
	// can happen here.
	_ = v.RegisterValidation("emergency_category", func(fl validator.FieldLevel) bool {
		return types.ValidCategory(types.EmergencyCategory(fl.Field().String()))
	})
	_ = v.RegisterValidation("frame_data", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates the given struct against its `validate` tags.
// On failure it returns a *types.AppError carrying a per-field details map so
// handlers can surface exactly which fields were rejected.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		// Passed a non-struct; this is a programming error, not bad input.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid validation target", err)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		code := types.ErrCodeValidationFieldFormat
		for _, fe := range validationErrs {
			details[fieldName(fe)] = ruleMessage(fe)
			if fe.Tag() == "required" {
				code = types.ErrCodeValidationMissingField
			}
			if fe.Tag() == "emergency_category" {
				code = types.ErrCodeValidationInvalidCategory
			}
		}
		return types.NewAppErrorWithDetails(code, "request validation failed", err, details)
	}

	return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
}

// fieldName returns the struct field identifier in snake_case-ish lowercased
// form for client-facing details maps.
func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

// ruleMessage maps a failed validation tag to a short human-readable reason.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "emergency_category":
		return "must be a valid emergency category"
	case "frame_data":
		return "must be a base64 image data URL"
	case "min":
		return "value below minimum " + fe.Param()
	case "max":
		return "value above maximum " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed rule: " + fe.Tag()
	}
}
