package handler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/storefront/pkg/response"
)

// 阿尔及利亚号码：本地 0 开头或 +213 / 00213 前缀，移动号 5/6/7 开头 9 位，座机 2/3/4 开头 8 位
var dzPhonePattern = regexp.MustCompile(`^(?:(?:\+|00)213|0)(?:[567]\d{8}|[234]\d{7})$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "")

// IsDZPhone 号码允许包含空格、短横线、点分隔
func IsDZPhone(s string) bool {
	return dzPhonePattern.MatchString(phoneSeparators.Replace(strings.TrimSpace(s)))
}

// RegisterValidators 在 gin 的校验引擎上注册 dzphone，并让错误字段使用 json 名
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("dzphone", func(fl validator.FieldLevel) bool {
		return IsDZPhone(fl.Field().String())
	})
}

// bindError 把绑定/校验错误转换为字段错误响应
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(c, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	response.ValidationFailed(c, fields)
}

// fieldPath 去掉顶层结构体名，如 createOrderRequest.items[0].quantity -> items[0].quantity
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "dzphone":
		return "invalid phone number"
	case "min":
		return fmt.Sprintf("must have at least %s element(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
