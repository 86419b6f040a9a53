package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"startup-apply/internal/domain"
	"startup-apply/internal/query"
	"startup-apply/internal/service"
)

// ApplicationHandler expone las postulaciones bajo /api/applications.
type ApplicationHandler struct {
	logger  *zap.Logger
	appServ *service.ApplicationService
}

func NewApplicationHandler(logger *zap.Logger, appServ *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{logger: logger, appServ: appServ}
}

func (h *ApplicationHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid "+op+" request", zap.Error(err))
		fail(c, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// Create maneja POST /api/applications.
func (h *ApplicationHandler) Create(c *gin.Context) {
	var app domain.Application
	if !h.bind(c, &app, "create application") {
		return
	}
	view, err := h.appServ.Create(c.Request.Context(), actorFrom(c), app)
	if err != nil {
		respondError(c, h.logger, "create application", err)
		return
	}
	respond(c, http.StatusCreated, "Application created successfully", view)
}

// List maneja GET /api/applications.
func (h *ApplicationHandler) List(c *gin.Context) {
	q, err := query.Build(queryParams(c), service.ApplicationSearchFields)
	if err != nil {
		respondError(c, h.logger, "list applications", err)
		return
	}
	page, err := h.appServ.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		respondError(c, h.logger, "list applications", err)
		return
	}
	respondPaged(c, page)
}

// ListAll maneja GET /api/applications/admin/all.
func (h *ApplicationHandler) ListAll(c *gin.Context) {
	q, err := query.Build(queryParams(c), service.ApplicationSearchFields)
	if err != nil {
		respondError(c, h.logger, "list all applications", err)
		return
	}
	page, err := h.appServ.ListAll(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		respondError(c, h.logger, "list all applications", err)
		return
	}
	respondPaged(c, page)
}

// Get maneja GET /api/applications/:id.
func (h *ApplicationHandler) Get(c *gin.Context) {
	detail, err := h.appServ.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get application", err)
		return
	}
	respond(c, http.StatusOK, "", detail)
}

// Update maneja PUT /api/applications/:id.
func (h *ApplicationHandler) Update(c *gin.Context) {
	var patch service.ApplicationPatch
	if !h.bind(c, &patch, "update application") {
		return
	}
	view, err := h.appServ.Update(c.Request.Context(), actorFrom(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, "update application", err)
		return
	}
	respond(c, http.StatusOK, "Application updated successfully", view)
}

// Delete maneja DELETE /api/applications/:id.
func (h *ApplicationHandler) Delete(c *gin.Context) {
	if err := h.appServ.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete application", err)
		return
	}
	respond(c, http.StatusOK, "Application deleted successfully", nil)
}

// UpdateStatus maneja PATCH /api/applications/:id/status.
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !h.bind(c, &req, "update status") {
		return
	}
	view, err := h.appServ.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, "update status", err)
		return
	}
	respond(c, http.StatusOK, "Application status updated successfully", view)
}

// IncrementView maneja POST /api/applications/:id/views.
func (h *ApplicationHandler) IncrementView(c *gin.Context) {
	counts, err := h.appServ.IncrementView(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "increment view", err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"views": counts})
}

// AddTeamMember maneja PUT /api/applications/:id/team-members.
func (h *ApplicationHandler) AddTeamMember(c *gin.Context) {
	var member domain.TeamMember
	if !h.bind(c, &member, "add team member") {
		return
	}
	view, err := h.appServ.AddTeamMember(c.Request.Context(), actorFrom(c), c.Param("id"), member)
	if err != nil {
		respondError(c, h.logger, "add team member", err)
		return
	}
	respond(c, http.StatusOK, "Team member added successfully", view)
}

// AddUpdate maneja PUT /api/applications/:id/updates.
func (h *ApplicationHandler) AddUpdate(c *gin.Context) {
	var update domain.Update
	if !h.bind(c, &update, "add update") {
		return
	}
	view, err := h.appServ.AddUpdate(c.Request.Context(), actorFrom(c), c.Param("id"), update)
	if err != nil {
		respondError(c, h.logger, "add update", err)
		return
	}
	respond(c, http.StatusOK, "Update added successfully", view)
}

// AddInvestment maneja PUT /api/applications/:id/investments.
func (h *ApplicationHandler) AddInvestment(c *gin.Context) {
	var inv domain.Investment
	if !h.bind(c, &inv, "add investment") {
		return
	}
	view, err := h.appServ.AddInvestment(c.Request.Context(), actorFrom(c), c.Param("id"), inv)
	if err != nil {
		respondError(c, h.logger, "add investment", err)
		return
	}
	respond(c, http.StatusOK, "Investment added successfully", view)
}
