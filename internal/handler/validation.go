package handler

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	countryCodeRule = regexp.MustCompile(`^[A-Z]{2,3}$`)
	registerOnce    sync.Once
)

// RegisterValidators adds the custom binding rules used by request DTOs.
// Safe to call from every handler constructor.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("countrycode", func(fl validator.FieldLevel) bool {
				return countryCodeRule.MatchString(fl.Field().String())
			})
		}
	})
}
