package api

import (
	"HealthAgent/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置并返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, jwtSecret string, limiter ratelimiter.RateLimiter) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	authMiddleware := AuthMiddleware(jwtSecret)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(RateLimitMiddleware(limiter))
	{
		chatGroup := apiV1.Group("/chat")
		chatGroup.Use(authMiddleware)
		{
			chatGroup.POST("", h.Chat)
			chatGroup.POST("/stream", h.ChatStream)
		}

		knowledge := apiV1.Group("/knowledge")
		knowledge.Use(authMiddleware)
		{
			knowledge.POST("/documents", h.IngestDocument)
		}

		toolsGroup := apiV1.Group("/tools")
		toolsGroup.Use(authMiddleware)
		{
			toolsGroup.GET("/stats", h.ToolStats)
		}
	}

	return r
}
