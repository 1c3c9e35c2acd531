package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/config"
	catalogsvc "github.com/JesseCorbett/minawan-maker/internal/services/catalog"
	workflowsvc "github.com/JesseCorbett/minawan-maker/internal/services/workflow"
	"github.com/JesseCorbett/minawan-maker/internal/transport/http/handlers"
)

type Dependencies struct {
	WorkflowService *workflowsvc.Service
	CatalogService  *catalogsvc.Service
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	moderationHandler := handlers.NewModerationHandler(deps.WorkflowService)
	catalogHandler := handlers.NewCatalogHandler(deps.CatalogService)
	storageEventsHandler := handlers.NewStorageEventsHandler(deps.WorkflowService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	// Reviewer action links open as GETs straight from chat clients.
	r.Get("/moderation/approve", moderationHandler.Approve)
	r.Get("/moderation/delete", moderationHandler.Delete)

	r.Get("/admin/rebuild", catalogHandler.Rebuild)

	r.Post("/events/storage", storageEventsHandler.Handle)
}
