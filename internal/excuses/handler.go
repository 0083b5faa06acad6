package excuses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/auth"
	"github.com/campus-pulse/backend/internal/events"
	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/internal/registrations"
	"github.com/campus-pulse/backend/pkg/database"
	"github.com/campus-pulse/backend/pkg/queue"
	"github.com/campus-pulse/backend/pkg/response"
)

// SubmitRequest is the body for POST /events/:id/excuses.
type SubmitRequest struct {
	Slot      string `json:"slot" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	ProofLink string `json:"proof_link"`
}

// ReviewRequest is the body for POST /excuses/:id/review.
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Notes    string `json:"notes"`
}

// Handler handles excuse HTTP endpoints.
type Handler struct {
	repo   *Repository
	events *events.Repository
	regs   *registrations.Repository
	orgs   *organizations.Repository
	users  *auth.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an excuses handler.
func NewHandler(repo *Repository, evts *events.Repository, regs *registrations.Repository, orgs *organizations.Repository, users *auth.Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: evts, regs: regs, orgs: orgs, users: users, queue: q, logger: logger}
}

// Submit handles POST /events/:id/excuses. Mandatory events only; the
// requester must hold a live registration.
func (h *Handler) Submit(c *gin.Context) {
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
	if !e.Mandatory {
		response.BadRequest(c, "excuses apply to mandatory events only")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Slot != models.ExcuseSlotAll {
		if _, ok := models.ParseScanSlot(req.Slot); !ok {
			response.BadRequest(c, "unknown slot: "+req.Slot)
			return
		}
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	reg, err := h.regs.Get(c.Request.Context(), eventID, userID)
	if err != nil || reg.Status == models.RegStatusCancelled {
		response.BadRequest(c, "you are not registered for this event")
		return
	}

	ex := &models.Excuse{
		EventID:   eventID,
		UserID:    userID,
		Slot:      req.Slot,
		Reason:    req.Reason,
		ProofLink: req.ProofLink,
	}
	if err := h.repo.Create(c.Request.Context(), ex); err != nil {
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "an excuse for this slot is already pending or approved")
			return
		}
		response.Internal(c, "failed to submit excuse")
		return
	}
	response.Created(c, ex)
}

// Review handles POST /excuses/:id/review (org organizer or platform admin).
// pending is the only reviewable state; a second review returns a conflict.
// Approval only suppresses the absence penalty, it records no attendance and
// awards no points.
func (h *Handler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid excuse id")
		return
	}
	ex, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "excuse not found")
		return
	}
	e, err := h.events.GetByID(c.Request.Context(), ex.EventID)
	if err != nil {
		response.Internal(c, "failed to review excuse")
		return
	}
	if !h.canManage(c, e.OrganizationID) {
		response.Forbidden(c, "only organization organizers can review excuses")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reviewer := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	reviewed, err := reviewExcuse(c.Request.Context(), h.repo, id, reviewer, models.ExcuseStatus(req.Decision), req.Notes, time.Now())
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			response.Conflict(c, "excuse has already been reviewed")
			return
		}
		response.Internal(c, "failed to review excuse")
		return
	}
	h.enqueueDecision(c.Request.Context(), reviewed, e)
	response.OK(c, reviewed)
}

// ListMine handles GET /excuses/me.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list excuses")
		return
	}
	response.OK(c, list)
}

// ListByEvent handles GET /events/:id/excuses (org organizer or platform admin).
func (h *Handler) ListByEvent(c *gin.Context) {
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
		response.Forbidden(c, "only organization organizers can view excuses")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list excuses")
		return
	}
	response.OK(c, list)
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

func (h *Handler) enqueueDecision(ctx context.Context, ex *models.Excuse, e *models.Event) {
	if h.queue == nil {
		return
	}
	u, err := h.users.GetByID(ctx, ex.UserID)
	if err != nil {
		h.logger.Warn("skipping decision email, user lookup failed",
			zap.String("user_id", ex.UserID.String()), zap.Error(err))
		return
	}
	eventID := ex.EventID
	payload := queue.EmailPayload{
		EmailType:      models.EmailTypeExcuseDecision,
		UserID:         u.ID,
		EventID:        &eventID,
		RecipientEmail: u.Email,
		RecipientName:  u.FullName,
		Subject:        fmt.Sprintf("Excuse %s: %s", ex.Status, e.Title),
		BodyHTML: fmt.Sprintf("<p>Hi %s,</p><p>Your excuse for <strong>%s</strong> (slot: %s) was <strong>%s</strong>.</p><p>%s</p>",
			u.FullName, e.Title, ex.Slot, ex.Status, ex.ReviewNotes),
	}
	if err := h.queue.EnqueueEmail(ctx, payload); err != nil {
		h.logger.Warn("failed to enqueue decision email", zap.Error(err))
	}
}
