package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

// ErrorHandler превращает ошибку, добавленную через c.Error, в JSON ответ.
// Внутренние ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.StatusOf(err)
		code := apperror.CodeOf(err)
		message := "внутренняя ошибка сервера"

		entry := logger.Component("http").WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
			"code":   code,
		}).WithError(err)

		if status >= http.StatusInternalServerError && code != apperror.ErrCodeGateway {
			entry.Error("ошибка обработки запроса")
			code = apperror.ErrCodeInternal
		} else {
			entry.Debug("запрос отклонён")
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				message = appErr.Message
			}
		}

		c.JSON(status, gin.H{"error": message, "code": code})
	}
}
