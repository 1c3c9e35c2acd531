package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/services/workflow"
	"github.com/JesseCorbett/minawan-maker/internal/transport/http/dto"
	httperrors "github.com/JesseCorbett/minawan-maker/internal/transport/http/errors"
)

// ModerationWorkflow is the slice of the workflow service driven by reviewer
// action links.
type ModerationWorkflow interface {
	Approve(ctx context.Context, userID string, comm community.Community, key string) error
	Delete(ctx context.Context, userID string, comm community.Community, key string) error
}

// ModerationHandler serves the approve/delete action URLs embedded in review
// prompts. Parameters arrive as query strings because the links are opened
// straight from chat.
type ModerationHandler struct {
	workflow ModerationWorkflow
}

func NewModerationHandler(workflow ModerationWorkflow) *ModerationHandler {
	return &ModerationHandler{workflow: workflow}
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, comm, key, ok := h.actionParams(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Approve(r.Context(), userID, comm, key); err != nil {
		if errors.Is(err, workflow.ErrUnauthorized) {
			writeUnauthorized(w, "INVALID_KEY", "Invalid moderation key")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to approve submission")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ModerationActionResponse{
		Message: fmt.Sprintf("Approved files for %s in %s", userID, comm),
	})
}

func (h *ModerationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, comm, key, ok := h.actionParams(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Delete(r.Context(), userID, comm, key); err != nil {
		if errors.Is(err, workflow.ErrUnauthorized) {
			writeUnauthorized(w, "INVALID_KEY", "Invalid moderation key")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to delete submission")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ModerationActionResponse{
		Message: fmt.Sprintf("Deleted files for %s in %s", userID, comm),
	})
}

func (h *ModerationHandler) actionParams(w http.ResponseWriter, r *http.Request) (string, community.Community, string, bool) {
	if h.workflow == nil {
		writeInternal(w, "WORKFLOW_UNAVAILABLE", "moderation workflow is unavailable")
		return "", "", "", false
	}

	query := r.URL.Query()
	key := query.Get("key")
	rawCommunity := query.Get("community")
	userID := query.Get("userId")
	if key == "" || rawCommunity == "" || userID == "" {
		writeBadRequest(w, "MISSING_PARAMETERS", "Missing key, community, or userId")
		return "", "", "", false
	}

	comm, err := community.Parse(rawCommunity)
	if err != nil {
		writeBadRequest(w, "INVALID_COMMUNITY", "Invalid community")
		return "", "", "", false
	}

	return userID, comm, key, true
}
