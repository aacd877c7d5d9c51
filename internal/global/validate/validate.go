package validate

import (
	"instavision/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Register 向 gin 的校验器注册 user_status、user_role 规则
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("user_status", func(fl validator.FieldLevel) bool {
		return model.Status(fl.Field().String()).Valid()
	}); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	}))
}
