package middleware

import (
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accredian/referralhub/pkg/response"
)

// Recovery logs the panic with its stack and answers with the generic 500 body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(logger, true, func(c *gin.Context, _ any) {
		response.AbortInternalError(c)
	})
}
