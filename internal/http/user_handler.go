package httpapi

import (
	"net/http"
	"time"

	"societysync/internal/domain"
	"societysync/internal/repository"
	"societysync/internal/service"

	"go.uber.org/zap"
)

// UserHandler 管理员：住户账号与房屋占用
type UserHandler struct {
	userService      service.UserService
	occupancyService service.OccupancyService
	location         *time.Location
	logger           *zap.Logger
}

// NewUserHandler 创建住户管理 Handler
func NewUserHandler(userService service.UserService, occupancyService service.OccupancyService, location *time.Location, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:      userService,
		occupancyService: occupancyService,
		location:         location,
		logger:           logger,
	}
}

// ListUsers GET /admin/api/v1/users?role=&search=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	q := r.URL.Query()
	users, err := h.userService.ListUsers(r.Context(), actor, repository.UserFilters{
		Role:   domain.Role(q.Get("role")),
		Search: q.Get("search"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": users, "total": len(users)}))
}

// CreateUser POST /admin/api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var form service.NewUserForm
	if !decodeBody(w, r, defaultMaxBodyBytes, &form) {
		return
	}
	req, err := form.Build(h.location)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.userService.CreateUser(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(res))
}

// GetUser GET /admin/api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.userService.GetUser(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(profile))
}

// DeleteUser DELETE /admin/api/v1/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"user_id": id, "deleted": true}))
}

// ListOwners GET /admin/api/v1/owners（租户创建时的业主下拉）
func (h *UserHandler) ListOwners(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	owners, err := h.userService.ListOwners(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(owners))
}

// Occupancy GET /admin/api/v1/flats/occupancy
func (h *UserHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	flats, err := h.occupancyService.ListFlats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(flats))
}

// AvailableFlats GET /admin/api/v1/flats/available
func (h *UserHandler) AvailableFlats(w http.ResponseWriter, r *http.Request) {
	flats, err := h.occupancyService.AvailableFlats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(flats))
}
