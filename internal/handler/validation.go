package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 在 gin 的校验器上注册业务枚举标签，并让错误信息使用 JSON 字段名
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("watchstatus", func(fl validator.FieldLevel) bool {
			return model.WatchStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("episodestatus", func(fl validator.FieldLevel) bool {
			return model.EpisodeStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
			return model.MediaType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("reportrange", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case service.RangeWeek, service.RangeMonth, service.RangeYear, service.RangeAll:
				return true
			}
			return false
		})
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// bindMessage 把绑定/校验错误转成可读文案
func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return strings.Join(msgs, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "watchstatus":
		return "must be planned, watching or completed"
	case "episodestatus":
		return "must be unwatched, watched or skipped"
	case "mediatype":
		return "must be movie or tv"
	case "reportrange":
		return "must be week, month, year or all"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
