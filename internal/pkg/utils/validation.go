package utils

import (
	"disbursement-service/internal/pkg/exceptions"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return exceptions.ErrInputValidation(err)
	}
	return nil
}
