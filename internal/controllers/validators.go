package controllers

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var fundCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,31}$`)

// RegisterValidators installs the custom binding rules the request models
// use. Call once before serving.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("fundcode", validFundCode)
	}
}

func validFundCode(fl validator.FieldLevel) bool {
	return fundCodePattern.MatchString(fl.Field().String())
}
