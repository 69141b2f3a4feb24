package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/logger"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

func init() {
	// 校验错误使用 json / form 标签名作为字段名
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

// respondError 将业务错误类别映射为 HTTP 响应
// 未归类的错误记录完整日志，对外只返回通用提示
func respondError(c *gin.Context, err error) {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.ValidationFailed(c, ve.Fields)
		return
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, response.CodeForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, pkgerrors.ErrIntegrityConflict), errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, response.CodeConflict, err.Error())
	default:
		logger.FromContext(c.Request.Context(), nil).Error("未处理的错误",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// respondBindError 处理请求绑定失败：字段校验错误逐字段返回，其余统一为格式错误
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], bindMessage(fe))
		}
		response.ValidationFailed(c, fields)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		response.ValidationFailed(c, map[string][]string{typeErr.Field: {"字段类型错误"}})
	case errors.As(err, &syntaxErr):
		response.BadRequest(c, response.CodeInvalidParams, "请求体不是合法的 JSON")
	default:
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
	}
}

func bindMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min":
		return "至少需要 " + fe.Param() + " 项"
	case "oneof":
		return "取值必须为 " + fe.Param() + " 之一"
	default:
		return "格式不正确"
	}
}
