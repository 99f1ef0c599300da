package httpapi

import (
	"net/http"
	"strconv"

	"societysync/internal/service"

	"go.uber.org/zap"
)

// VisitorHandler 访客 Handler
type VisitorHandler struct {
	visitorService service.VisitorService
	maxBodyBytes   int64
	logger         *zap.Logger
}

// NewVisitorHandler 创建访客 Handler，maxBodyBytes 需容纳 base64 照片
func NewVisitorHandler(visitorService service.VisitorService, maxBodyBytes int64, logger *zap.Logger) *VisitorHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &VisitorHandler{visitorService: visitorService, maxBodyBytes: maxBodyBytes, logger: logger}
}

// ListFlat GET /api/v1/visitors?limit=
func (h *VisitorHandler) ListFlat(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	items, err := h.visitorService.ListFlatVisitors(r.Context(), actor, parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// List GET /admin/api/v1/visitors?flat_number=&status=&date=&limit=
func (h *VisitorHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	q := r.URL.Query()
	items, err := h.visitorService.ListVisitors(r.Context(), actor, service.ListVisitorsRequest{
		FlatNumber: q.Get("flat_number"),
		Status:     q.Get("status"),
		Date:       q.Get("date"),
		Limit:      parseInt(q.Get("limit"), 0),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Log POST /admin/api/v1/visitors
func (h *VisitorHandler) Log(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.LogVisitorRequest
	if !decodeBody(w, r, h.maxBodyBytes, &req) {
		return
	}
	v, err := h.visitorService.LogVisitor(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(v))
}

// Exit POST /admin/api/v1/visitors/{id}/exit
func (h *VisitorHandler) Exit(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.visitorService.MarkExit(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(v))
}

// Delete DELETE /admin/api/v1/visitors/{id}
func (h *VisitorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.visitorService.DeleteVisitor(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"visitor_id": id, "deleted": true}))
}

// Photo GET /admin/api/v1/visitors/{id}/photo（原始图片）
func (h *VisitorHandler) Photo(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	photo, err := h.visitorService.Photo(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(photo.Data)
}
