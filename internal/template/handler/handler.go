// Package handler exposes the template repository over HTTP.
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
	"templatehub/internal/template/models"
	"templatehub/internal/template/service"
	"templatehub/internal/transport/http/shared"
	vendormodels "templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
	dErrors "templatehub/pkg/domain-errors"
)

// Service defines the template operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, template models.MasterTemplate) (models.MasterTemplate, error)
	Get(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error)
	GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error)
	FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error)
	FindLatestActiveByType(ctx context.Context, templateType string) (models.MasterTemplate, error)
	ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string) ([]models.MasterTemplate, error)
	List(ctx context.Context, filter models.ListFilter, page models.Page) (service.TemplatePage, error)
	UpdateInPlace(ctx context.Context, templateID id.TemplateID, version int, patch models.TemplatePatch) (models.MasterTemplate, error)
	ForkNewVersion(ctx context.Context, templateID id.TemplateID, version int, patch models.TemplatePatch) (models.MasterTemplate, error)
	Archive(ctx context.Context, templateID id.TemplateID, version int) error
}

// VendorLister supplies the vendor mappings embedded when a template read
// asks for includeVendors.
type VendorLister interface {
	ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]vendormodels.VendorMapping, error)
}

// PageConfig bounds client-supplied paging.
type PageConfig struct {
	DefaultSize int
	MaxSize     int
}

// Handler handles template endpoints.
type Handler struct {
	logger       *slog.Logger
	templates    Service
	vendors      VendorLister
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	pages        PageConfig
}

// New creates a template Handler.
func New(
	templates Service,
	vendors VendorLister,
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
		templates:    templates,
		vendors:      vendors,
		metrics:      m,
		jwtValidator: jwtValidator,
		pages:        pages,
	}
}

// Register registers the template routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	templateRouter := chi.NewRouter()
	templateRouter.Use(middleware.Recovery(h.logger))
	templateRouter.Use(middleware.RequestID)
	templateRouter.Use(middleware.Logger(h.logger))
	templateRouter.Use(middleware.Timeout(30 * time.Second))
	templateRouter.Use(middleware.ContentTypeJSON)
	templateRouter.Use(middleware.Latency(h.metrics))
	templateRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	templateRouter.Post("/", h.handleCreate)
	templateRouter.Get("/", h.handleList)
	templateRouter.Get("/search/latest", h.handleFindLatestActive)
	templateRouter.Get("/search/by-type", h.handleFindByTypeAndVersion)
	templateRouter.Get("/search/active", h.handleListActiveByLOB)
	templateRouter.Get("/{templateId}", h.handleGetAllVersions)
	templateRouter.Get("/{templateId}/versions/{version}", h.handleGetVersion)
	templateRouter.Patch("/{templateId}/versions/{version}", h.handlePatchVersion)
	templateRouter.Delete("/{templateId}/versions/{version}", h.handleArchiveVersion)

	r.Mount("/templates", templateRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create template request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.templates.Create(ctx, req.toTemplate())
	if err != nil {
		h.writeServiceError(ctx, w, "create template", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toTemplateResponse(created))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := models.ListFilter{
		LineOfBusiness:    optionalString(query.Get("lineOfBusiness")),
		TemplateType:      optionalString(query.Get("templateType")),
		CommunicationType: optionalString(query.Get("communicationType")),
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

	page, err := h.templates.List(ctx, filter, models.Page{Limit: size, Offset: pageNum * size})
	if err != nil {
		h.writeServiceError(ctx, w, "list templates", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, templateListResponse{
		Templates:  toTemplateResponses(page.Templates),
		TotalCount: page.Total,
		Page:       pageNum,
		Size:       size,
	})
}

func (h *Handler) handleGetAllVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, err := id.ParseTemplateID(chi.URLParam(r, "templateId"))
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	versions, err := h.templates.GetAllVersions(ctx, templateID)
	if err != nil {
		h.writeServiceError(ctx, w, "get template versions", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTemplateResponses(versions))
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, version, err := pathIdentity(r)
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	template, err := h.templates.Get(ctx, templateID, version)
	if err != nil {
		h.writeServiceError(ctx, w, "get template", err)
		return
	}

	resp := toTemplateResponse(template)
	if r.URL.Query().Get("includeVendors") == "true" {
		mappings, err := h.vendors.ListByTemplateVersion(ctx, templateID, version)
		if err != nil {
			h.writeServiceError(ctx, w, "list template vendors", err)
			return
		}
		resp.Vendors = toVendorSummaries(mappings)
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFindByTypeAndVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	templateType := query.Get("templateType")
	if templateType == "" {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "templateType is required"))
		return
	}
	version, err := strconv.Atoi(query.Get("templateVersion"))
	if err != nil || version < 1 {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "templateVersion must be a positive integer"))
		return
	}

	template, err := h.templates.FindByTypeAndVersion(ctx, templateType, version)
	if err != nil {
		h.writeServiceError(ctx, w, "find template by type", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

func (h *Handler) handleFindLatestActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateType := r.URL.Query().Get("templateType")
	if templateType == "" {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "templateType is required"))
		return
	}

	template, err := h.templates.FindLatestActiveByType(ctx, templateType)
	if err != nil {
		h.writeServiceError(ctx, w, "find latest active template", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

func (h *Handler) handleListActiveByLOB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lineOfBusiness := r.URL.Query().Get("lineOfBusiness")
	if lineOfBusiness == "" {
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "lineOfBusiness is required"))
		return
	}

	templates, err := h.templates.ListActiveByLineOfBusiness(ctx, lineOfBusiness)
	if err != nil {
		h.writeServiceError(ctx, w, "list active templates", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTemplateResponses(templates))
}

// handlePatchVersion updates one version. With ?newVersion=true the patch
// forks a new version instead of mutating the addressed one.
func (h *Handler) handlePatchVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, version, err := pathIdentity(r)
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid patch template request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var updated models.MasterTemplate
	if r.URL.Query().Get("newVersion") == "true" {
		updated, err = h.templates.ForkNewVersion(ctx, templateID, version, req.toPatch())
	} else {
		updated, err = h.templates.UpdateInPlace(ctx, templateID, version, req.toPatch())
	}
	if err != nil {
		h.writeServiceError(ctx, w, "patch template", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTemplateResponse(updated))
}

func (h *Handler) handleArchiveVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID, version, err := pathIdentity(r)
	if err != nil {
		shared.WriteError(ctx, w, err)
		return
	}

	if err := h.templates.Archive(ctx, templateID, version); err != nil {
		h.writeServiceError(ctx, w, "archive template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, "template operation failed",
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

func pathIdentity(r *http.Request) (id.TemplateID, int, error) {
	templateID, err := id.ParseTemplateID(chi.URLParam(r, "templateId"))
	if err != nil {
		return id.TemplateID{}, 0, err
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		return id.TemplateID{}, 0, dErrors.New(dErrors.CodeBadRequest, "version must be a positive integer")
	}
	return templateID, version, nil
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
