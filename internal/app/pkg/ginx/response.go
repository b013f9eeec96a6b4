package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"alertx/internal/common/model"
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, model.Response{
		Meta: model.MetaInfo{Code: http.StatusOK, Type: model.ResponseTypeOK, Message: "OK"},
		Data: data,
	})
}

// Created 创建成功（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, model.Response{
		Meta: model.MetaInfo{Code: http.StatusCreated, Type: model.ResponseTypeOK, Message: "Created"},
		Data: data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, typ, message string) {
	ErrorWithData(c, httpCode, typ, message, nil)
}

// ErrorWithData 错误响应，附带数据（例如 409 的 active_case_id）
func ErrorWithData(c *gin.Context, httpCode int, typ, message string, data interface{}) {
	c.AbortWithStatusJSON(httpCode, model.Response{
		Meta: model.MetaInfo{Code: httpCode, Type: typ, Message: message},
		Data: data,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, typ, message string, details []model.ErrorDetail) {
	c.AbortWithStatusJSON(httpCode, model.Response{
		Meta: model.MetaInfo{Code: httpCode, Type: typ, Message: message, Details: details},
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, model.ResponseTypeValidationError, message)
}

// BadRequestWithValidation 400 错误（带 validator 字段详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]model.ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, model.ErrorDetail{
				Path: fieldErr.Namespace(),
				Info: validationMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, model.ResponseTypeValidationError, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, model.ResponseTypeNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, model.ResponseTypeInternalError, message)
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_if":
		return fieldErr.Field() + " is required"
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	case "oneof":
		return fieldErr.Field() + " must be one of: " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
