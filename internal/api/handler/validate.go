package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/calegray/codedock/internal/security"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("repoowner", func(fl validator.FieldLevel) bool {
		return security.ValidateRepoOwner(fl.Field().String()) == nil
	})
	v.RegisterValidation("reponame", func(fl validator.FieldLevel) bool {
		return security.ValidateRepoName(fl.Field().String()) == nil
	})
	return v
}

// validationMessages flattens validator errors into a field→message map.
func validationMessages(err error) any {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	errors := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errors[field] = "field is required"
		case "max":
			errors[field] = "must be at most " + e.Param() + " characters"
		case "oneof":
			errors[field] = "must be one of " + e.Param()
		case "repoowner":
			errors[field] = "invalid repository owner"
		case "reponame":
			errors[field] = "invalid repository name"
		default:
			errors[field] = "validation failed on " + e.Tag()
		}
	}
	return errors
}
