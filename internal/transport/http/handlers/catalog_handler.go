package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/transport/http/dto"
	httperrors "github.com/JesseCorbett/minawan-maker/internal/transport/http/errors"
)

type CatalogRebuilder interface {
	Rebuild(ctx context.Context, comm community.Community) error
}

// CatalogHandler exposes rebuild as an operational repair endpoint. It is not
// capability-gated: rebuilding recomputes published state, it cannot approve
// or delete anything.
type CatalogHandler struct {
	rebuilder CatalogRebuilder
}

func NewCatalogHandler(rebuilder CatalogRebuilder) *CatalogHandler {
	return &CatalogHandler{rebuilder: rebuilder}
}

func (h *CatalogHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		writeInternal(w, "CATALOG_UNAVAILABLE", "catalog service is unavailable")
		return
	}

	rawCommunity := r.URL.Query().Get("community")
	if rawCommunity == "" {
		writeBadRequest(w, "MISSING_PARAMETERS", "Missing community")
		return
	}

	comm, err := community.Parse(rawCommunity)
	if err != nil {
		writeBadRequest(w, "INVALID_COMMUNITY", "Invalid community")
		return
	}

	if err := h.rebuilder.Rebuild(r.Context(), comm); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to rebuild catalog")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RebuildResponse{
		Message: fmt.Sprintf("Rebuilt catalog for %s", comm),
	})
}
