package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pvel/askd/internal/pkg/errcode"
	"github.com/pvel/askd/internal/pkg/response"
	"github.com/pvel/askd/internal/repo"
	"github.com/pvel/askd/internal/service"
)

const maxListLimit = 200

type DocumentHandler struct {
	ingest *service.IngestService
	docs   *repo.DocumentRepo
}

func NewDocumentHandler(ingest *service.IngestService, docs *repo.DocumentRepo) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, docs: docs}
}

type ingestRequest struct {
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
}

func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.ingest.IngestText(c.Request.Context(), req.SourceID, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}
	docs, err := h.docs.List(c.Request.Context(), offset, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}
