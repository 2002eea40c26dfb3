package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shipdash-backend/internal/domain/shipments"
	"github.com/yungbote/shipdash-backend/internal/http/response"
)

const uploadTemplateName = "Upload_Format.csv"

type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler { return &TemplateHandler{} }

// GET /api/upload-template
func (h *TemplateHandler) UploadTemplate(c *gin.Context) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(shipments.UploadTemplateHeaders); err != nil {
		response.RespondFailure(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		response.RespondFailure(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+uploadTemplateName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
