package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/response"
	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/ginx"
	"alertx/internal/app/pkg/logger"
	"alertx/internal/common/model"
)

// ErrorHandler 统一错误处理：handler 通过 c.Error(err) 上报，这里映射为状态码
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		var active *errorx.ActiveCaseError
		var biz *errorx.BusinessError
		switch {
		case errors.As(err, &active):
			ginx.ErrorWithData(c, http.StatusConflict, model.ResponseTypeActiveCaseExists, err.Error(),
				response.ActiveCaseData{ActiveCaseID: active.CaseID})
		case errors.Is(err, errorx.ErrInvalidTransition):
			ginx.Error(c, http.StatusUnprocessableEntity, model.ResponseTypeInvalidTransition, err.Error())
		case errors.Is(err, errorx.ErrPoolUnavailable):
			log.Errorf(ctx, "[HTTP] no unit available: %v", err)
			ginx.Error(c, http.StatusServiceUnavailable, model.ResponseTypePoolUnavailable, err.Error())
		case errors.Is(err, errorx.ErrCaseNotFound):
			ginx.NotFound(c, err.Error())
		case errors.Is(err, errorx.ErrUnitMismatch):
			ginx.Error(c, http.StatusConflict, model.ResponseTypeUnitMismatch, err.Error())
		case errors.Is(err, ettriage.ErrEmptyInput),
			errors.Is(err, ettriage.ErrUnknownSeverity),
			errors.Is(err, ettriage.ErrUnknownCategory),
			errors.Is(err, etprimitive.ErrInvalidCoordinates),
			errors.Is(err, etcase.ErrInvalidRequesterID):
			ginx.BadRequest(c, err.Error())
		case errors.As(err, &biz):
			details := make([]model.ErrorDetail, 0, len(biz.Details))
			for _, d := range biz.Details {
				details = append(details, model.ErrorDetail{Path: d.Path, Info: d.Info})
			}
			ginx.ErrorWithDetails(c, biz.Code, model.ResponseTypeValidationError, biz.Message, details)
		default:
			log.Errorf(ctx, "[HTTP] unhandled error: %s %s: %v", c.Request.Method, c.FullPath(), err)
			ginx.InternalError(c, "internal error")
		}
	}
}
