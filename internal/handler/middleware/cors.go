package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"accredian/referralhub/internal/config"
)

// CORS restricts browsers to the configured frontend origins. cors.New panics
// on a bad origin list, so the list is checked here first.
func CORS(cfg config.CORSConfig) (gin.HandlerFunc, error) {
	if len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("cors: at least one allowed origin is required")
	}
	for _, origin := range cfg.AllowedOrigins {
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
			return nil, fmt.Errorf("cors: origin %q must start with http:// or https://", origin)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}), nil
}
