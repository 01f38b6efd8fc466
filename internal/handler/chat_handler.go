package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pvel/askd/internal/pkg/errcode"
	"github.com/pvel/askd/internal/pkg/response"
	"github.com/pvel/askd/internal/service"
)

type ChatHandler struct {
	resolver *service.ResolverService
}

func NewChatHandler(resolver *service.ResolverService) *ChatHandler {
	return &ChatHandler{resolver: resolver}
}

type chatQueryRequest struct {
	Query string `json:"query"`
}

// Query answers one question. The body always carries a tagged answer;
// pipeline failures surface as source "error" with a user-safe text.
func (h *ChatHandler) Query(c *gin.Context) {
	var req chatQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.resolver.Resolve(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

func (h *ChatHandler) CacheStats(c *gin.Context) {
	response.Success(c, gin.H{"size": h.resolver.CacheSize()})
}
