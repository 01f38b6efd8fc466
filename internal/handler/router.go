package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pvel/askd/internal/pkg/response"
)

type RouterDeps struct {
	Chat      *ChatHandler
	Documents *DocumentHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/chat/query", deps.Chat.Query)
	api.GET("/cache/stats", deps.Chat.CacheStats)

	api.POST("/documents", deps.Documents.Ingest)
	api.GET("/documents", deps.Documents.List)

	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
}
