package validator

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/campuswell/counseling-api/internal/model"
)

// RegisterCustomValidators installs domain validations on gin's binding
// engine. Must run before any request is bound.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("timeslot", validTimeSlot)
}

func validTimeSlot(fl validator.FieldLevel) bool {
	return model.TimeSlot(fl.Field().String()).Valid()
}
