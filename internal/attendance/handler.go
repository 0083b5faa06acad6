package attendance

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-pulse/backend/internal/events"
	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/pkg/response"
)

// ScanRequest is the body for POST /events/:id/scan.
type ScanRequest struct {
	Token string `json:"token" binding:"required"`
	Slot  string `json:"slot" binding:"required"`
	Notes string `json:"notes"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	repo   *Repository
	events *events.Repository
	orgs   *organizations.Repository
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, repo *Repository, evts *events.Repository, orgs *organizations.Repository) *Handler {
	return &Handler{svc: svc, repo: repo, events: evts, orgs: orgs}
}

// Scan handles POST /events/:id/scan (org organizer or platform admin).
func (h *Handler) Scan(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if !h.canManage(c, e.OrganizationID) {
		response.Forbidden(c, "only organization organizers can scan")
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slot, ok := models.ParseScanSlot(req.Slot)
	if !ok {
		response.BadRequest(c, "unknown scan slot: "+req.Slot)
		return
	}

	scannedBy := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	result, err := h.svc.Scan(c.Request.Context(), e, ScanInput{
		Token:     req.Token,
		Slot:      slot,
		ScannedBy: scannedBy,
		Notes:     req.Notes,
		Now:       time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrInvalidQR), errors.Is(err, ErrUnregistered),
			errors.Is(err, ErrSlotDisabled), errors.Is(err, ErrOutsideWindow):
			response.BadRequest(c, err.Error())
		default:
			response.Internal(c, "failed to record scan")
		}
		return
	}
	response.Created(c, result)
}

// Matrix handles GET /events/:id/attendance (org organizer or platform admin).
func (h *Handler) Matrix(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if !h.canManage(c, e.OrganizationID) {
		response.Forbidden(c, "only organization organizers can view attendance")
		return
	}
	matrix, err := h.repo.Matrix(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load attendance")
		return
	}
	response.OK(c, gin.H{
		"event_id":      eventID,
		"enabled_slots": e.EnabledSlots(),
		"rows":          matrix,
	})
}

func (h *Handler) canManage(c *gin.Context, orgID uuid.UUID) bool {
	role := c.MustGet(middleware.ContextUserRole).(string)
	if role == string(models.RoleAdmin) {
		return true
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.orgs.UserCanManage(c.Request.Context(), orgID, userID)
	return err == nil && ok
}
