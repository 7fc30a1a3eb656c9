package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор на базе go-playground/validator.
// Ошибки называют поля так же, как они приходят в JSON или форме.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func fieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}
