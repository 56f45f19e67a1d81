// Package services contains the portal's business logic.
// File: services/validate.go
package services

import (
	"github.com/go-playground/validator/v10"

	"fme-portal/models"
)

// validate is the shared validator instance, with the portal's custom rules
// registered once at package load.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// studentemail: a numeric student ID at the configured institutional domain
	if err := v.RegisterValidation("studentemail", func(fl validator.FieldLevel) bool {
		return models.IsStudentEmail(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}
