package flowrate

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section of the configuration. Failures are ConfigurationErrors.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("invalid engine configuration", describe(err))
	}
	return nil
}

// ValidateCorrections checks window ordering, correction types and payloads.
// It runs before any computation; the first invalid correction aborts the run.
func ValidateCorrections(corrections []Correction) error {
	for i, c := range corrections {
		if err := validateCorrection(c); err != nil {
			return apperrors.NewConfigError(fmt.Sprintf("invalid correction #%d", i), err).
				WithContext("correction_id", c.ID).
				WithContext("correction_type", string(c.Type))
		}
	}
	return nil
}

func validateCorrection(c Correction) error {
	if err := validate.Struct(c); err != nil {
		return describe(err)
	}
	if c.Params == nil {
		return nil
	}
	if got := c.Params.correctionType(); got != c.Type {
		return fmt.Errorf("params of type %q do not match correction type %q", got, c.Type)
	}

	switch p := c.Params.(type) {
	case InterpolateParams:
		if err := validate.Struct(p); err != nil {
			return describe(err)
		}
	case ManualValueParams:
		if !finitePtr(p.Tube) || !finitePtr(p.Line) {
			return fmt.Errorf("manual values must be finite")
		}
	case ClampParams:
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return fmt.Errorf("clamp min %.3f exceeds max %.3f", *p.Min, *p.Max)
		}
	}
	return nil
}

func finitePtr(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

// validateSamples enforces strictly increasing timestamps.
func validateSamples(samples []PressureSample) error {
	for i := 1; i < len(samples); i++ {
		if !samples[i].Time.After(samples[i-1].Time) {
			return apperrors.NewValidationError("sample timestamps must be strictly increasing").
				WithContext("index", i).
				WithContext("time", samples[i].Time)
		}
	}
	return nil
}

// describe flattens validator field errors into one readable error.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %v", fe.Namespace(), fe.Param(), fe.Value()))
		case "gtfield", "ltfield":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return stderrors.New(strings.Join(msgs, "; "))
}
