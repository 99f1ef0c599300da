package httpapi

import (
	"net/http"

	"societysync/internal/service"

	"go.uber.org/zap"
)

// NotificationHandler 通知 Handler
type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler 创建通知 Handler
func NewNotificationHandler(notificationService service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// ListMine GET /api/v1/notifications?unread=true&limit=
func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	q := r.URL.Query()
	items, err := h.notificationService.ListForUser(r.Context(), actor, parseBool(q.Get("unread")), parseInt(q.Get("limit"), 0))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	unread, err := h.notificationService.UnreadCount(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items), "unread": unread}))
}

// MarkRead POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"notification_id": id, "read": true}))
}

// MarkAllRead POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	n, err := h.notificationService.MarkAllRead(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"marked": n}))
}

// History GET /admin/api/v1/notifications?limit=
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	items, err := h.notificationService.History(r.Context(), actor, parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Create POST /admin/api/v1/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.NotificationRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	n, err := h.notificationService.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(n))
}

// Update PUT /admin/api/v1/notifications/{id}
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.NotificationRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	n, err := h.notificationService.Update(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

// Delete DELETE /admin/api/v1/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"notification_id": id, "deleted": true}))
}
