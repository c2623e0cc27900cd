package utils

import (
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	translator   ut.Translator
	validateOnce sync.Once
)

// Validate 验证结构体并返回中文错误信息
func Validate(data interface{}) (string, error) {
	validateOnce.Do(func() {
		validate, translator = NewValidator()
	})
	return ValidateStruct(validate, translator, data)
}
