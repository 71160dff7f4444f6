package handler

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/tutorlink/marketplace-api/internal/dto"
	"github.com/tutorlink/marketplace-api/internal/service"
	appErrors "github.com/tutorlink/marketplace-api/pkg/errors"
	"github.com/tutorlink/marketplace-api/pkg/response"
	"github.com/tutorlink/marketplace-api/pkg/storage"
)

// ExportHandler exposes asynchronous export jobs and signed downloads.
type ExportHandler struct {
	exports *service.ExportService
	storage *storage.LocalStorage
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, store *storage.LocalStorage) *ExportHandler {
	return &ExportHandler{exports: exports, storage: store}
}

// Request godoc
// @Summary Queue a booking ledger export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportRequest true "Export parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.Request(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/exports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	job, err := h.exports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download an export via signed token
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	relPath, err := h.exports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(h.storage.Path(relPath), path.Base(relPath))
}
