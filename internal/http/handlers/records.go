package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/http/response"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
	"github.com/yungbote/shipdash-backend/internal/services"
)

type updateRecordRequest struct {
	ID            string         `json:"id"`
	UpdatedFields map[string]any `json:"updatedFields"`
}

func bindObject(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		response.RespondError(c, http.StatusBadRequest,
			apierr.BadRequest("invalid_body", "request body must be a JSON object"))
		return nil, false
	}
	return body, true
}

func bindUpdate(c *gin.Context) (updateRecordRequest, bool) {
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest,
			apierr.BadRequest("invalid_body", "Missing id or updatedFields"))
		return req, false
	}
	return req, true
}

// EmailHandler serves the contact list.
type EmailHandler struct {
	log    *logger.Logger
	emails services.RecordService
}

func NewEmailHandler(log *logger.Logger, emails services.RecordService) *EmailHandler {
	return &EmailHandler{log: log.With("handler", "EmailHandler"), emails: emails}
}

// GET /api/emails
func (h *EmailHandler) ListEmails(c *gin.Context) {
	page, err := h.emails.List(c.Request.Context(), services.RecordListParams{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", defaultEmailLimit),
		Search: c.Query("search"),
	})
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	doc, err := h.emails.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, doc)
}

// POST /api/emails
func (h *EmailHandler) CreateEmail(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	doc, err := h.emails.Create(c.Request.Context(), body)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Email document added", "doc": doc})
}

// PATCH /api/emails
func (h *EmailHandler) UpdateEmail(c *gin.Context) {
	req, ok := bindUpdate(c)
	if !ok {
		return
	}
	matched, err := h.emails.Update(c.Request.Context(), req.ID, req.UpdatedFields)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Email document updated", "matched": matched})
}

// DELETE /api/emails?id=
func (h *EmailHandler) DeleteEmail(c *gin.Context) {
	if _, err := h.emails.Delete(c.Request.Context(), c.Query("id")); err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Email document deleted"})
}

// DataHandler serves ad-hoc collections named by the collection query parameter.
type DataHandler struct {
	log         *logger.Logger
	collections services.CollectionService
}

func NewDataHandler(log *logger.Logger, collections services.CollectionService) *DataHandler {
	return &DataHandler{log: log.With("handler", "DataHandler"), collections: collections}
}

func (h *DataHandler) resolve(c *gin.Context) (services.RecordService, bool) {
	svc, err := h.collections.For(strings.TrimSpace(c.Query("collection")))
	if err != nil {
		response.RespondFailure(c, err)
		return nil, false
	}
	return svc, true
}

// GET /api/data?collection=
func (h *DataHandler) ListData(c *gin.Context) {
	svc, ok := h.resolve(c)
	if !ok {
		return
	}
	docs, err := svc.ListAll(c.Request.Context())
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	if docs == nil {
		docs = []types.Record{}
	}
	response.RespondOK(c, docs)
}

// GET /api/data/:id?collection=
func (h *DataHandler) GetData(c *gin.Context) {
	svc, ok := h.resolve(c)
	if !ok {
		return
	}
	doc, err := svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, doc)
}

// POST /api/data?collection=
func (h *DataHandler) CreateData(c *gin.Context) {
	svc, ok := h.resolve(c)
	if !ok {
		return
	}
	body, ok := bindObject(c)
	if !ok {
		return
	}
	doc, err := svc.Create(c.Request.Context(), body)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Document added", "doc": doc})
}

// PATCH /api/data?collection=
func (h *DataHandler) UpdateData(c *gin.Context) {
	svc, ok := h.resolve(c)
	if !ok {
		return
	}
	req, ok := bindUpdate(c)
	if !ok {
		return
	}
	matched, err := svc.Update(c.Request.Context(), req.ID, req.UpdatedFields)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Document updated", "matched": matched})
}

// DELETE /api/data?collection=&id=
func (h *DataHandler) DeleteData(c *gin.Context) {
	svc, ok := h.resolve(c)
	if !ok {
		return
	}
	if _, err := svc.Delete(c.Request.Context(), c.Query("id")); err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Document deleted"})
}
