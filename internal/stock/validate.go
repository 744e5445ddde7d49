package stock

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Validator checks normalized records against their struct tags. The custom
// finite rule exists because strconv.ParseFloat happily returns NaN and Inf
// for "NaN" and "Inf" inputs.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return &Validator{validate: v}
}

// Quote validates a normalized quote.
func (v *Validator) Quote(q Quote) error {
	if err := v.validate.Struct(q); err != nil {
		return fmt.Errorf("quote %s: %w", q.Symbol, err)
	}
	return nil
}

// History validates every point and the strict ascending date order.
func (v *Validator) History(h History) error {
	for i, p := range h {
		if err := v.validate.Struct(p); err != nil {
			return fmt.Errorf("history point %s: %w", p.Date, err)
		}
		if i > 0 && !h[i-1].Date.Before(p.Date.Time) {
			return fmt.Errorf("history out of order at %s", p.Date)
		}
	}
	return nil
}
