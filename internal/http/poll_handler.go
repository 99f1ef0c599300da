package httpapi

import (
	"net/http"

	"societysync/internal/service"

	"go.uber.org/zap"
)

// PollHandler 投票 Handler
type PollHandler struct {
	pollService service.PollService
	logger      *zap.Logger
}

// NewPollHandler 创建投票 Handler
func NewPollHandler(pollService service.PollService, logger *zap.Logger) *PollHandler {
	return &PollHandler{pollService: pollService, logger: logger}
}

// ListActive GET /api/v1/polls
func (h *PollHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	polls, err := h.pollService.ListActive(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": polls, "total": len(polls)}))
}

// Vote POST /api/v1/polls/{id}/vote
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		OptionID int64 `json:"option_id"`
	}
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	if err := h.pollService.Vote(r.Context(), actor, id, req.OptionID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"poll_id": id, "option_id": req.OptionID}))
}

// MyVote GET /api/v1/polls/{id}/vote 本人在该投票中的选择
func (h *PollHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	optionID, err := h.pollService.HasVoted(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"poll_id":   id,
		"voted":     optionID != nil,
		"option_id": optionID,
	}))
}

// Results GET /api/v1/polls/{id}/results 与 /admin/api/v1/polls/{id}/results
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.pollService.Results(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ListAll GET /admin/api/v1/polls
func (h *PollHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	polls, err := h.pollService.ListAll(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": polls, "total": len(polls)}))
}

// Create POST /admin/api/v1/polls
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.CreatePollRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	p, err := h.pollService.CreatePoll(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(p))
}

// Close POST /admin/api/v1/polls/{id}/close
func (h *PollHandler) Close(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.pollService.ClosePoll(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"poll_id": id, "is_active": false}))
}

// Delete DELETE /admin/api/v1/polls/{id}
func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.pollService.DeletePoll(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"poll_id": id, "deleted": true}))
}
