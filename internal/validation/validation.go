// Package validation provides the custom request validators of both services.
package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ValidAccountKind validates whether the account kind is supported.
var ValidAccountKind validator.Func = func(fl validator.FieldLevel) bool {
	if k, ok := fl.Field().Interface().(string); ok {
		return domain.AccountKind(k).Valid()
	}

	return false
}

// ValidInterval validates whether the recurring payment interval is supported.
var ValidInterval validator.Func = func(fl validator.FieldLevel) bool {
	if i, ok := fl.Field().Interface().(string); ok {
		return domain.Interval(i).Valid()
	}

	return false
}

// Register registers the custom validators on the gin binding engine.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("account_kind", ValidAccountKind); err != nil {
		return err
	}

	return v.RegisterValidation("interval", ValidInterval)
}
