package handler

import (
	"net/http"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/handler/middleware"
	"accredian/referralhub/internal/metrics"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	referralHandler *ReferralHandler,
) (*gin.Engine, error) {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	corsMiddleware, err := middleware.CORS(cfg.CORS)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(corsMiddleware)

	if cfg.Server.PublicDir != "" {
		r.Use(static.Serve("/", static.LocalFile(cfg.Server.PublicDir, false)))
	}

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/submit-form", referralHandler.SubmitForm)

	return r, nil
}
