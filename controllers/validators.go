package controllers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/zedbites/backoffice/models"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request bodies.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("reporttype", func(fl validator.FieldLevel) bool {
			return models.ReportType(fl.Field().String()).Valid()
		})
	})
}
