package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shipdash-backend/internal/http/response"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
	"github.com/yungbote/shipdash-backend/internal/services"
)

const defaultUploadMaxBytes int64 = 32 << 20

type UploadHandler struct {
	log      *logger.Logger
	ingest   services.IngestionService
	maxBytes int64
}

func NewUploadHandler(log *logger.Logger, ingest services.IngestionService, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		ingest:   ingest,
		maxBytes: maxBytes,
	}
}

// POST /api/upload-csv
func (h *UploadHandler) UploadShipments(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.RespondError(c, http.StatusRequestEntityTooLarge,
				apierr.New(http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("upload exceeds %d bytes", h.maxBytes)))
		case errors.Is(err, http.ErrMissingFile):
			response.RespondError(c, http.StatusBadRequest, apierr.BadRequest("no_file", "No file uploaded"))
		default:
			response.RespondError(c, http.StatusBadRequest, apierr.New(http.StatusBadRequest, "invalid_multipart_form", err))
		}
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		response.RespondFailure(c, err)
		return
	}

	res, err := h.ingest.IngestFile(c.Request.Context(), fh.Filename, data)
	if err != nil {
		h.log.Error("Upload failed", "file_name", fh.Filename, "error", err)
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":          fmt.Sprintf("Uploaded %d records successfully", res.Count),
		"count":            res.Count,
		"fileName":         res.FileName,
		"webhookScheduled": res.WebhookScheduled,
		"sample":           res.Sample,
	})
}
