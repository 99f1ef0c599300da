package httpapi

import (
	"net/http"

	"societysync/internal/domain"
	"societysync/internal/repository"
	"societysync/internal/service"

	"go.uber.org/zap"
)

// ComplaintHandler 投诉 Handler
type ComplaintHandler struct {
	complaintService service.ComplaintService
	logger           *zap.Logger
}

// NewComplaintHandler 创建投诉 Handler
func NewComplaintHandler(complaintService service.ComplaintService, logger *zap.Logger) *ComplaintHandler {
	return &ComplaintHandler{complaintService: complaintService, logger: logger}
}

// ListMine GET /api/v1/complaints
func (h *ComplaintHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	items, err := h.complaintService.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Create POST /api/v1/complaints
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.CreateComplaintRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	c, err := h.complaintService.CreateComplaint(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(c))
}

// ListAll GET /admin/api/v1/complaints?status=&priority=&flat_number=&limit=
func (h *ComplaintHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	q := r.URL.Query()
	items, err := h.complaintService.ListAll(r.Context(), actor, repository.ComplaintFilters{
		FlatNumber: q.Get("flat_number"),
		Status:     domain.ComplaintStatus(q.Get("status")),
		Priority:   domain.Priority(q.Get("priority")),
		Limit:      parseInt(q.Get("limit"), 0),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Get GET /admin/api/v1/complaints/{id}
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.complaintService.GetComplaint(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

// UpdateStatus PUT /admin/api/v1/complaints/{id}/status
func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status domain.ComplaintStatus `json:"status"`
	}
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	c, err := h.complaintService.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

// Respond PUT /admin/api/v1/complaints/{id}/response
func (h *ComplaintHandler) Respond(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		AdminResponse string `json:"admin_response"`
	}
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	c, err := h.complaintService.Respond(r.Context(), actor, id, req.AdminResponse)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

// Delete DELETE /admin/api/v1/complaints/{id}
func (h *ComplaintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.complaintService.DeleteComplaint(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"complaint_id": id, "deleted": true}))
}

// Stats GET /admin/api/v1/complaints/stats
func (h *ComplaintHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	stats, err := h.complaintService.Stats(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}
