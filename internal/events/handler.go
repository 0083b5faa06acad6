package events

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/pkg/response"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Registrar pre-registers organization members for mandatory events. Implemented
// by the registrations package; kept as an interface to avoid an import cycle.
type Registrar interface {
	AutoRegisterOrgMembers(ctx context.Context, event *models.Event) error
}

// SlotWindowRequest configures one scan slot.
type SlotWindowRequest struct {
	Enabled  bool    `json:"enabled"`
	StartsAt *string `json:"starts_at"`
	EndsAt   *string `json:"ends_at"`
}

// CreateRequest is the body for POST /organizations/:id/events.
type CreateRequest struct {
	Title                string                       `json:"title" binding:"required"`
	Description          string                       `json:"description"`
	Venue                string                       `json:"venue"`
	Mandatory            bool                         `json:"mandatory"`
	StartsAt             string                       `json:"starts_at" binding:"required"`
	EndsAt               string                       `json:"ends_at" binding:"required"`
	Capacity             *int                         `json:"capacity"`
	RegistrationDeadline *string                      `json:"registration_deadline"`
	Points               *int                         `json:"points"`
	Slots                map[string]SlotWindowRequest `json:"slots"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo      *Repository
	orgs      *organizations.Repository
	registrar Registrar
	logger    *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, orgs *organizations.Repository, registrar Registrar, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, orgs: orgs, registrar: registrar, logger: logger}
}

func buildSlots(reqs map[string]SlotWindowRequest) (map[models.ScanSlot]models.SlotWindow, string) {
	slots := make(map[models.ScanSlot]models.SlotWindow, len(models.AllScanSlots()))
	for _, s := range models.AllScanSlots() {
		slots[s] = models.SlotWindow{}
	}
	for name, req := range reqs {
		slot, ok := models.ParseScanSlot(name)
		if !ok {
			return nil, "unknown scan slot: " + name
		}
		w := models.SlotWindow{Enabled: req.Enabled}
		if req.Enabled {
			if req.StartsAt == nil || req.EndsAt == nil {
				return nil, "enabled slot " + name + " needs starts_at and ends_at"
			}
			start, err := parseTime(*req.StartsAt)
			if err != nil {
				return nil, "invalid starts_at for slot " + name
			}
			end, err := parseTime(*req.EndsAt)
			if err != nil {
				return nil, "invalid ends_at for slot " + name
			}
			w.StartsAt, w.EndsAt = start, end
		}
		slots[slot] = w
	}
	return slots, ""
}

// Create handles POST /organizations/:id/events (org organizer or platform admin).
func (h *Handler) Create(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)

	if !h.canManage(c, orgID, userID, role) {
		response.Forbidden(c, "only organization organizers can create events")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	endsAt, err := parseTime(req.EndsAt)
	if err != nil {
		response.BadRequest(c, "invalid ends_at")
		return
	}
	if !endsAt.After(startsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}
	var deadline *time.Time
	if req.RegistrationDeadline != nil {
		t, err := parseTime(*req.RegistrationDeadline)
		if err != nil {
			response.BadRequest(c, "invalid registration_deadline")
			return
		}
		deadline = &t
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		response.BadRequest(c, "capacity must be positive")
		return
	}
	if req.Points != nil && *req.Points < 0 {
		response.BadRequest(c, "points must not be negative")
		return
	}

	slots, msg := buildSlots(req.Slots)
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}

	e := &models.Event{
		OrganizationID:       orgID,
		CreatedBy:            userID,
		Title:                req.Title,
		Description:          req.Description,
		Venue:                req.Venue,
		Mandatory:            req.Mandatory,
		StartsAt:             startsAt,
		EndsAt:               endsAt,
		Capacity:             req.Capacity,
		RegistrationDeadline: deadline,
		Points:               req.Points,
		Slots:                slots,
	}
	if err := e.ValidateSlotWindows(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// Mandatory events cannot be capacity-limited: every member is registered.
	if e.Mandatory && e.Capacity != nil {
		response.BadRequest(c, "mandatory events cannot have a capacity")
		return
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create event")
		return
	}
	if e.Mandatory {
		if err := h.registrar.AutoRegisterOrgMembers(c.Request.Context(), e); err != nil {
			h.logger.Warn("mandatory auto-registration incomplete",
				zap.String("event_id", e.ID.String()), zap.Error(err))
		}
	}
	response.Created(c, e)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// List handles GET /events. Query ?org=<uuid> scopes to an organization,
// ?upcoming=1 filters out finished events.
func (h *Handler) List(c *gin.Context) {
	var orgID *uuid.UUID
	if s := c.Query("org"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid org filter")
			return
		}
		orgID = &id
	}
	list, err := h.repo.List(c.Request.Context(), orgID, c.Query("upcoming") == "1")
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// UpdateRequest is the body for PATCH /events/:id. Absent fields are left as-is.
type UpdateRequest struct {
	Title                *string                      `json:"title"`
	Description          *string                      `json:"description"`
	Venue                *string                      `json:"venue"`
	Mandatory            *bool                        `json:"mandatory"`
	StartsAt             *string                      `json:"starts_at"`
	EndsAt               *string                      `json:"ends_at"`
	Capacity             *int                         `json:"capacity"`
	RegistrationDeadline *string                      `json:"registration_deadline"`
	Points               *int                         `json:"points"`
	Slots                map[string]SlotWindowRequest `json:"slots"`
}

// Update handles PATCH /events/:id (org organizer or platform admin). Scan
// windows and the mandatory flag are frozen once any attendance is recorded.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)
	if !h.canManage(c, e.OrganizationID, userID, role) {
		response.Forbidden(c, "only organization organizers can update events")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	touchesFrozen := req.Mandatory != nil || len(req.Slots) > 0
	if touchesFrozen {
		frozen, err := h.repo.HasAttendance(c.Request.Context(), id)
		if err != nil {
			response.Internal(c, "failed to update event")
			return
		}
		if frozen {
			response.Conflict(c, "scan windows are frozen once attendance has been recorded")
			return
		}
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.Mandatory != nil {
		e.Mandatory = *req.Mandatory
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		e.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := parseTime(*req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		e.EndsAt = t
	}
	if !e.EndsAt.After(e.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			response.BadRequest(c, "capacity must be positive")
			return
		}
		e.Capacity = req.Capacity
	}
	if req.RegistrationDeadline != nil {
		t, err := parseTime(*req.RegistrationDeadline)
		if err != nil {
			response.BadRequest(c, "invalid registration_deadline")
			return
		}
		e.RegistrationDeadline = &t
	}
	if req.Points != nil {
		if *req.Points < 0 {
			response.BadRequest(c, "points must not be negative")
			return
		}
		e.Points = req.Points
	}
	if len(req.Slots) > 0 {
		for name, sw := range req.Slots {
			slot, ok := models.ParseScanSlot(name)
			if !ok {
				response.BadRequest(c, "unknown scan slot: "+name)
				return
			}
			w := models.SlotWindow{Enabled: sw.Enabled}
			if sw.Enabled {
				if sw.StartsAt == nil || sw.EndsAt == nil {
					response.BadRequest(c, "enabled slot "+name+" needs starts_at and ends_at")
					return
				}
				start, err := parseTime(*sw.StartsAt)
				if err != nil {
					response.BadRequest(c, "invalid starts_at for slot "+name)
					return
				}
				end, err := parseTime(*sw.EndsAt)
				if err != nil {
					response.BadRequest(c, "invalid ends_at for slot "+name)
					return
				}
				w.StartsAt, w.EndsAt = start, end
			}
			e.Slots[slot] = w
		}
	}
	if err := e.ValidateSlotWindows(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if e.Mandatory && e.Capacity != nil {
		response.BadRequest(c, "mandatory events cannot have a capacity")
		return
	}

	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to update event")
		return
	}
	if req.Mandatory != nil && e.Mandatory {
		if err := h.registrar.AutoRegisterOrgMembers(c.Request.Context(), e); err != nil {
			h.logger.Warn("mandatory auto-registration incomplete",
				zap.String("event_id", e.ID.String()), zap.Error(err))
		}
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (org organizer or platform admin). Events
// with recorded attendance cannot be deleted.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)
	if !h.canManage(c, e.OrganizationID, userID, role) {
		response.Forbidden(c, "only organization organizers can delete events")
		return
	}
	hasAttendance, err := h.repo.HasAttendance(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to delete event")
		return
	}
	if hasAttendance {
		response.Conflict(c, "events with recorded attendance cannot be deleted")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

func (h *Handler) canManage(c *gin.Context, orgID, userID uuid.UUID, role string) bool {
	if role == string(models.RoleAdmin) {
		return true
	}
	ok, err := h.orgs.UserCanManage(c.Request.Context(), orgID, userID)
	return err == nil && ok
}
