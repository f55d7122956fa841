package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// configValidate 校验各阶段配置的 validate 标签；validator 实例缓存结构体元信息，并发安全。
var configValidate = validator.New(validator.WithRequiredStructEnabled())

// RegisterValidation 注册自定义校验标签，只应在 init 中调用；tag 非法时直接 panic。
func RegisterValidation(tag string, fn func(value string) bool) {
	err := configValidate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("core: register validation %q: %v", tag, err))
	}
}

// ValidateConfig 按 validate 标签校验配置结构体，失败时返回包装了 ErrInvalidConfig 的错误，
// 消息中列出所有不合法的字段。
func ValidateConfig(cfg any) error {
	err := configValidate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid config: %s: %w", strings.Join(msgs, "; "), ErrInvalidConfig)
}
