package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/transport/http/dto"
	httperrors "github.com/JesseCorbett/minawan-maker/internal/transport/http/errors"
)

type SubmissionWorkflow interface {
	OnSubmit(ctx context.Context, objectKey string) error
}

// StorageEventsHandler receives bucket notifications and feeds finalized
// object keys into the workflow. Filtering of non-submission keys happens in
// the workflow, which treats them as silent no-ops.
type StorageEventsHandler struct {
	workflow SubmissionWorkflow
	log      *zap.Logger
}

func NewStorageEventsHandler(workflow SubmissionWorkflow, log *zap.Logger) *StorageEventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StorageEventsHandler{workflow: workflow, log: log}
}

func (h *StorageEventsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.workflow == nil {
		writeInternal(w, "WORKFLOW_UNAVAILABLE", "moderation workflow is unavailable")
		return
	}

	var req dto.StorageEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "undecodable event payload")
		return
	}

	for _, record := range req.Records {
		// Object keys arrive URL-encoded in bucket notifications.
		objectKey, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			h.log.Warn("skipping malformed object key",
				zap.String("key", record.S3.Object.Key),
				zap.Error(err))
			continue
		}

		if err := h.workflow.OnSubmit(r.Context(), objectKey); err != nil {
			h.log.Error("submission workflow failed",
				zap.String("key", objectKey),
				zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "failed to process storage event")
			return
		}
	}

	httperrors.Write(w, http.StatusOK, dto.StorageEventsResponse{OK: true})
}
