package registrations

import (
	"context"
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
	"github.com/campus-pulse/backend/pkg/database"
	"github.com/campus-pulse/backend/pkg/queue"
	"github.com/campus-pulse/backend/pkg/response"
)

// Handler handles registration HTTP endpoints and the mandatory
// auto-registration flows.
type Handler struct {
	repo   *Repository
	events *events.Repository
	orgs   *organizations.Repository
	users  *auth.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, evts *events.Repository, orgs *organizations.Repository, users *auth.Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: evts, orgs: orgs, users: users, queue: q, logger: logger}
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	now := time.Now()
	if e.Mandatory {
		response.BadRequest(c, "mandatory events are registered automatically")
		return
	}
	if !e.RegistrationOpenAt(now) {
		response.BadRequest(c, "registration is closed for this event")
		return
	}
	if e.Capacity != nil {
		count, err := h.events.CountActiveRegistrations(c.Request.Context(), eventID)
		if err != nil {
			response.Internal(c, "failed to register")
			return
		}
		if count >= *e.Capacity {
			response.Conflict(c, "event is at capacity")
			return
		}
	}

	reg, created, err := h.repo.Upsert(c.Request.Context(), eventID, userID, false)
	if err != nil {
		response.Internal(c, "failed to register")
		return
	}
	if !created {
		response.Conflict(c, "already registered for this event")
		return
	}
	h.enqueueConfirmation(c.Request.Context(), e, userID)
	response.Created(c, reg)
}

// Cancel handles DELETE /events/:id/register.
func (h *Handler) Cancel(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if e.Mandatory {
		response.BadRequest(c, "mandatory registrations cannot be cancelled")
		return
	}
	if err := h.repo.Cancel(c.Request.Context(), eventID, userID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "no active registration for this event")
			return
		}
		response.Internal(c, "failed to cancel registration")
		return
	}
	response.NoContent(c)
}

// ListMine handles GET /registrations/me.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListByEvent handles GET /events/:id/registrations (org organizer or admin).
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
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)
	if role != string(models.RoleAdmin) {
		ok, err := h.orgs.UserCanManage(c.Request.Context(), e.OrganizationID, userID)
		if err != nil || !ok {
			response.Forbidden(c, "only organization organizers can view registrations")
			return
		}
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// AutoRegisterOrgMembers pre-registers every current member of the event's
// organization. Called when a mandatory event is created.
func (h *Handler) AutoRegisterOrgMembers(ctx context.Context, event *models.Event) error {
	memberIDs, err := h.orgs.ListMemberIDs(ctx, event.OrganizationID)
	if err != nil {
		return err
	}
	if err := h.repo.AutoRegisterAll(ctx, event.ID, memberIDs); err != nil {
		h.logger.Error("mandatory auto-registration failed",
			zap.String("event_id", event.ID.String()), zap.Error(err))
		return err
	}
	h.logger.Info("auto-registered org members for mandatory event",
		zap.String("event_id", event.ID.String()), zap.Int("members", len(memberIDs)))
	return nil
}

// AutoRegisterMember pre-registers one user for every upcoming mandatory event
// of the org. Called when a user joins an organization.
func (h *Handler) AutoRegisterMember(ctx context.Context, orgID, userID uuid.UUID) {
	evts, err := h.events.ListUpcomingMandatory(ctx, orgID)
	if err != nil {
		h.logger.Error("listing mandatory events failed",
			zap.String("org_id", orgID.String()), zap.Error(err))
		return
	}
	for _, e := range evts {
		if _, _, err := h.repo.Upsert(ctx, e.ID, userID, true); err != nil {
			h.logger.Error("mandatory auto-registration failed",
				zap.String("event_id", e.ID.String()),
				zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
}

func (h *Handler) enqueueConfirmation(ctx context.Context, e *models.Event, userID uuid.UUID) {
	if h.queue == nil {
		return
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.logger.Warn("skipping confirmation email, user lookup failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	eventID := e.ID
	payload := queue.EmailPayload{
		EmailType:      models.EmailTypeRegistrationConfirmation,
		UserID:         u.ID,
		EventID:        &eventID,
		RecipientEmail: u.Email,
		RecipientName:  u.FullName,
		Subject:        "Registration confirmed: " + e.Title,
		BodyHTML: fmt.Sprintf("<p>Hi %s,</p><p>You are registered for <strong>%s</strong> starting %s at %s.</p>",
			u.FullName, e.Title, e.StartsAt.Format(time.RFC1123), e.Venue),
	}
	if err := h.queue.EnqueueEmail(ctx, payload); err != nil {
		h.logger.Warn("failed to enqueue confirmation email", zap.Error(err))
	}
}
