package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"societysync/internal/domain"

	"github.com/go-playground/validator/v10"
)

// DateLayout 请求中的日期格式
const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误中使用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest 结构体校验，第一条失败转换为 ValidationError
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "email":
		reason = "must be a valid email address"
	case "min":
		reason = fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		reason = fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "oneof":
		reason = fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		reason = fmt.Sprintf("must be a date in %s format", fe.Param())
	default:
		reason = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
	return domain.NewValidationError(fe.Field(), reason)
}

// parseDate 按社区时区解析 YYYY-MM-DD
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// parseOptionalDate 空串返回 nil
func parseOptionalDate(field, value string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
