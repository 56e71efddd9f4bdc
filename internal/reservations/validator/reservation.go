package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"reservations/pkg/logger"
	"reservations/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the shape AppError.Details expects.
func (v ValidationErrors) Details() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("facility_name", validateFacilityName); err != nil {
		log.Fatal("Failed to register 'facility_name' validator",
			"error", err,
		)
	}

	log.Debug("Reservation validator initialized")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func validateFacilityName(fl validator.FieldLevel) bool {
	return model.ValidFacilityName(fl.Field().String())
}

// Validate checks the request's shape only. Whether the facilities exist and
// whether the start lies in the past is decided by the coordinator, which
// owns the facility set and the clock.
func (v *ReservationValidator) Validate(req *model.ReservationRequest) error {
	if req == nil {
		return ValidationErrors{
			ValidationError{Field: "request", Message: "request is required"},
		}
	}

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := fieldPath(err.Namespace())
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must have at least %s item(s)", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", field, strings.ToLower(err.Param()))
		case "facility_name":
			message = fmt.Sprintf("%s %q is not a valid facility name", field, err.Value())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name: "ReservationRequest.range.end" -> "range.end".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
