// Package handler exposes vendor mapping management and routing over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"templatehub/internal/platform/metrics"
	"templatehub/internal/platform/middleware"
	"templatehub/internal/routing"
	templatemodels "templatehub/internal/template/models"
	"templatehub/internal/transport/http/shared"
	"templatehub/internal/vendormapping/models"
	"templatehub/internal/vendormapping/service"
	id "templatehub/pkg/domain"
	dErrors "templatehub/pkg/domain-errors"
)

// Service defines the vendor mapping operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, mapping models.VendorMapping) (models.VendorMapping, error)
	Get(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error)
	List(ctx context.Context, filter models.ListFilter, page models.Page) (service.MappingPage, error)
	Update(ctx context.Context, vendorID id.VendorID, patch models.VendorPatch) (models.VendorMapping, error)
	UpdateHealth(ctx context.Context, vendorID id.VendorID, vendorStatus, healthStatus string) error
	Archive(ctx context.Context, vendorID id.VendorID) error
	FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) (models.VendorMapping, error)
	FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error)
}

// TemplateGetter supplies the parent template embedded when a mapping read
// asks for includeTemplateDetails.
type TemplateGetter interface {
	Get(ctx context.Context, templateID id.TemplateID, version int) (templatemodels.MasterTemplate, error)
}

// PageConfig bounds client-supplied paging.
type PageConfig struct {
	DefaultSize int
	MaxSize     int
}

// Handler handles vendor mapping endpoints.
type Handler struct {
	logger       *slog.Logger
	vendors      Service
	templates    TemplateGetter
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	pages        PageConfig
}

// New creates a vendor mapping Handler.
func New(
	vendors Service,
	templates TemplateGetter,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	pages PageConfig) *Handler {
	if pages.DefaultSize <= 0 {
		pages.DefaultSize = 20
	}
	if pages.MaxSize <= 0 {
		pages.MaxSize = 100
	}
	return &Handler{
		logger:       logger,
		vendors:      vendors,
		templates:    templates,
		metrics:      m,
		jwtValidator: jwtValidator,
		pages:        pages,
	}
}

// Register registers the vendor mapping routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	vendorRouter := chi.NewRouter()
	vendorRouter.Use(middleware.Recovery(h.logger))
	vendorRouter.Use(middleware.RequestID)
	vendorRouter.Use(middleware.Logger(h.logger))
	vendorRouter.Use(middleware.Timeout(30 * time.Second))
	vendorRouter.Use(middleware.ContentTypeJSON)
	vendorRouter.Use(middleware.Latency(h.metrics))
	vendorRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	vendorRouter.Post("/", h.handleCreate)
	vendorRouter.Get("/", h.handleList)
	vendorRouter.Get("/routing", h.handleRouting)
	vendorRouter.Get("/primary", h.handleFindPrimary)
	vendorRouter.Get("/{vendorId}", h.handleGet)
	vendorRouter.Patch("/{vendorId}", h.handlePatch)
	vendorRouter.Delete("/{vendorId}", h.handleArchive)
	vendorRouter.Put("/{vendorId}/health", h.handleUpdateHealth)

	r.Mount("/templates/vendors", vendorRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create vendor mapping request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	mapping, err := req.toMapping()
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}
	created, err := h.vendors.Create(ctx, mapping)
	if err != nil {
		h.writeServiceError(ctx, w, "create vendor mapping", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toMappingResponse(created))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := models.ListFilter{
		VendorType: optionalString(query.Get("vendorType")),
		Vendor:     optionalString(query.Get("vendor")),
	}
	if raw := query.Get("templateId"); raw != "" {
		templateID, err := id.ParseTemplateID(raw)
		if err != nil {
			shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "templateId must be a valid UUID"))
			return
		}
		filter.TemplateID = &templateID
	}
	activeFlag, err := optionalBool(query.Get("activeFlag"))
	if err != nil {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "activeFlag must be true or false"))
		return
	}
	filter.ActiveFlag = activeFlag

	pageNum, size, err := h.parsePaging(query.Get("page"), query.Get("size"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	page, err := h.vendors.List(ctx, filter, models.Page{Limit: size, Offset: pageNum * size})
	if err != nil {
		h.writeServiceError(ctx, w, "list vendor mappings", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, mappingListResponse{
		Mappings:   toMappingResponses(page.Mappings),
		TotalCount: page.Total,
		Page:       pageNum,
		Size:       size,
	})
}

// handleRouting returns the failover-ordered routable mappings for one
// template version and vendor type.
func (h *Handler) handleRouting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, version, vendorType, err := routingQuery(r)
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	candidates, err := h.vendors.FindActiveForRouting(ctx, templateID, version, vendorType)
	if err != nil {
		h.writeServiceError(ctx, w, "find routing candidates", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMappingResponses(routing.FailoverOrder(candidates)))
}

func (h *Handler) handleFindPrimary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, version, vendorType, err := routingQuery(r)
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	mapping, err := h.vendors.FindPrimary(ctx, templateID, version, vendorType)
	if err != nil {
		h.writeServiceError(ctx, w, "find primary vendor mapping", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMappingResponse(mapping))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vendorID, err := id.ParseVendorID(chi.URLParam(r, "vendorId"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	mapping, err := h.vendors.Get(ctx, vendorID)
	if err != nil {
		h.writeServiceError(ctx, w, "get vendor mapping", err)
		return
	}

	resp := toMappingResponse(mapping)
	if r.URL.Query().Get("includeTemplateDetails") == "true" {
		template, err := h.templates.Get(ctx, mapping.TemplateID, mapping.TemplateVersion)
		if err == nil {
			resp.Template = toTemplateSummary(template)
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.writeServiceError(ctx, w, "get mapping template details", err)
			return
		}
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vendorID, err := id.ParseVendorID(chi.URLParam(r, "vendorId"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	var req patchMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid patch vendor mapping request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.vendors.Update(ctx, vendorID, req.toPatch())
	if err != nil {
		h.writeServiceError(ctx, w, "patch vendor mapping", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMappingResponse(updated))
}

func (h *Handler) handleUpdateHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vendorID, err := id.ParseVendorID(chi.URLParam(r, "vendorId"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	var req healthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	switch req.VendorStatus {
	case models.VendorStatusActive, models.VendorStatusDegraded, models.VendorStatusDown:
	default:
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "vendorStatus must be ACTIVE, DEGRADED or DOWN"))
		return
	}

	if err := h.vendors.UpdateHealth(ctx, vendorID, req.VendorStatus, req.HealthStatus); err != nil {
		h.writeServiceError(ctx, w, "update vendor health", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vendorID, err := id.ParseVendorID(chi.URLParam(r, "vendorId"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	if err := h.vendors.Archive(ctx, vendorID); err != nil {
		h.writeServiceError(ctx, w, "archive vendor mapping", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, "vendor mapping operation failed",
			"request_id", middleware.GetRequestID(ctx),
			"op", op,
			"error", err.Error(),
		)
	}
	shared.WriteError(ctx, w, err)
}

func (h *Handler) parsePaging(pageRaw, sizeRaw string) (page, size int, err error) {
	page = 0
	if pageRaw != "" {
		page, err = strconv.Atoi(pageRaw)
		if err != nil || page < 0 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "page must be a non-negative integer")
		}
	}
	size = h.pages.DefaultSize
	if sizeRaw != "" {
		size, err = strconv.Atoi(sizeRaw)
		if err != nil || size < 1 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "size must be a positive integer")
		}
	}
	if size > h.pages.MaxSize {
		size = h.pages.MaxSize
	}
	return page, size, nil
}

func routingQuery(r *http.Request) (id.TemplateID, int, string, error) {
	query := r.URL.Query()
	templateID, err := id.ParseTemplateID(query.Get("templateId"))
	if err != nil {
		return id.TemplateID{}, 0, "", dErrors.New(dErrors.CodeBadRequest, "templateId must be a valid UUID")
	}
	version, err := strconv.Atoi(query.Get("templateVersion"))
	if err != nil || version < 1 {
		return id.TemplateID{}, 0, "", dErrors.New(dErrors.CodeBadRequest, "templateVersion must be a positive integer")
	}
	vendorType := query.Get("vendorType")
	if vendorType == "" {
		return id.TemplateID{}, 0, "", dErrors.New(dErrors.CodeBadRequest, "vendorType is required")
	}
	return templateID, version, vendorType, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
