package model

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// notifychannel validates a single channel kind inside a dive.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notifychannel", func(fl validator.FieldLevel) bool {
			return IsKnownChannel(fl.Field().String())
		})
	}
}
