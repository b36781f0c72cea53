package validators

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// IsDateOnly accepts calendar dates in YYYY-MM-DD form.
func IsDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// IsClockTime accepts wall-clock times in HH:MM form.
func IsClockTime(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}
