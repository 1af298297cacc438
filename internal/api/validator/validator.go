package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"roleadmin/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

var roleNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("role_name", validateRoleName)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("refill_unit", validateRefillUnit)
	if err != nil {
		return nil
	}

	return &CustomValidator{validator: v}
}

func validateRoleName(fl playgroundvalidator.FieldLevel) bool {
	return roleNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateRefillUnit(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidRefillUnit(models.RefillUnit(fl.Field().String()))
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields maps each failing field to a readable message.
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string)
	for _, err := range ve {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "role_name":
			errMap[field] = fmt.Sprintf("%s may only contain letters, digits, '_' and '-'", field)
		case "refill_unit":
			errMap[field] = fmt.Sprintf("%s must be one of seconds, minutes, hours, days, weeks, months", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, tag)
		}
	}
	return errMap
}

// ModelGrantRequest is one modelAccess entry.
type ModelGrantRequest struct {
	Enabled     bool    `json:"enabled"`
	Coefficient float64 `json:"coefficient" validate:"min=0.1,max=10"`
}

// ModelAccessRequest is the wire form of models.ModelAccess. Values must
// carry a tag after endkeys or the validator never descends into them.
type ModelAccessRequest map[string]*ModelGrantRequest

// ToModel converts to the stored form. A nil request stays nil.
func (m ModelAccessRequest) ToModel() models.ModelAccess {
	if m == nil {
		return nil
	}
	out := make(models.ModelAccess, len(m))
	for name, grant := range m {
		if grant == nil {
			continue
		}
		out[name] = models.ModelGrant{Enabled: grant.Enabled, Coefficient: grant.Coefficient}
	}
	return out
}

type CreateRoleRequest struct {
	Name        string             `json:"name" validate:"required,role_name"`
	Permissions models.Permissions `json:"permissions"`
	ModelAccess ModelAccessRequest `json:"modelAccess" validate:"omitempty,dive,keys,required,endkeys,required"`
}

type UpdateRoleRequest struct {
	Permissions models.Permissions `json:"permissions"`
	ModelAccess ModelAccessRequest `json:"modelAccess" validate:"omitempty,dive,keys,required,endkeys,required"`
}

type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,role_name"`
}

type SetBalanceRequest struct {
	Balance *float64 `json:"balance" validate:"required,min=0"`
	Reason  string   `json:"reason" validate:"max=500"`
}

type AdjustBalanceRequest struct {
	Amount *float64 `json:"amount" validate:"required"`
	Reason string   `json:"reason" validate:"max=500"`
}

type RefillPolicyRequest struct {
	Enabled       bool     `json:"enabled"`
	IntervalValue int      `json:"intervalValue" validate:"required,min=1"`
	IntervalUnit  string   `json:"intervalUnit" validate:"required,refill_unit"`
	Amount        *float64 `json:"amount" validate:"required,min=0"`
}

// ToModel converts a validated request to the ledger policy.
func (r RefillPolicyRequest) ToModel() models.RefillPolicy {
	p := models.RefillPolicy{
		Enabled:       r.Enabled,
		IntervalValue: r.IntervalValue,
		IntervalUnit:  models.RefillUnit(r.IntervalUnit),
	}
	if r.Amount != nil {
		p.Amount = *r.Amount
	}
	return p
}
