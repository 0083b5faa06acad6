package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/events"
	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/pkg/response"
)

// Handler handles GET /events/:id/analytics.
type Handler struct {
	pool      *pgxpool.Pool
	eventRepo *events.Repository
	orgs      *organizations.Repository
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool, eventRepo *events.Repository, orgs *organizations.Repository) *Handler {
	return &Handler{pool: pool, eventRepo: eventRepo, orgs: orgs}
}

// SummaryResponse is the per-event attendance summary.
type SummaryResponse struct {
	TotalRegistered int      `json:"total_registered"`
	TotalAttended   int      `json:"total_attended"`
	TotalExcused    int      `json:"total_excused"`
	TotalAbsent     int      `json:"total_absent"`
	TotalScans      int      `json:"total_scans"`
	AwardsGranted   int      `json:"awards_granted"`
	AttendanceRate  *float64 `json:"attendance_rate,omitempty"`
}

// GetByEvent handles GET /events/:id/analytics (org organizer or platform admin).
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	e, err := h.eventRepo.GetByID(ctx, id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	role := c.MustGet(middleware.ContextUserRole).(string)
	if role != string(models.RoleAdmin) {
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		ok, err := h.orgs.UserCanManage(ctx, e.OrganizationID, userID)
		if err != nil || !ok {
			response.Forbidden(c, "only organization organizers can view analytics")
			return
		}
	}

	var registered, attended int
	const regQ = `SELECT COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'attended')
		FROM registrations WHERE event_id = $1`
	if err := h.pool.QueryRow(ctx, regQ, id).Scan(&registered, &attended); err != nil {
		response.Internal(c, "failed to load registration counts")
		return
	}

	// Excused: registered users with an approved excuse and no attended status.
	var excused int
	const excQ = `SELECT COUNT(DISTINCT x.user_id) FROM excuses x
		JOIN registrations r ON r.event_id = x.event_id AND r.user_id = x.user_id
		WHERE x.event_id = $1 AND x.status = 'approved' AND r.status <> 'attended'`
	if err := h.pool.QueryRow(ctx, excQ, id).Scan(&excused); err != nil {
		response.Internal(c, "failed to load excuse counts")
		return
	}

	var scans int
	const scanQ = `SELECT COUNT(*) FROM attendance_records WHERE event_id = $1`
	if err := h.pool.QueryRow(ctx, scanQ, id).Scan(&scans); err != nil {
		response.Internal(c, "failed to load scan counts")
		return
	}

	var awards int
	const awardQ = `SELECT COUNT(*) FROM points_transactions WHERE event_id = $1 AND kind = 'attendance_award'`
	if err := h.pool.QueryRow(ctx, awardQ, id).Scan(&awards); err != nil {
		response.Internal(c, "failed to load award counts")
		return
	}

	absent := registered - attended - excused
	if absent < 0 {
		absent = 0
	}
	out := SummaryResponse{
		TotalRegistered: registered,
		TotalAttended:   attended,
		TotalExcused:    excused,
		TotalAbsent:     absent,
		TotalScans:      scans,
		AwardsGranted:   awards,
	}
	if registered > 0 {
		rate := float64(attended) / float64(registered)
		out.AttendanceRate = &rate
	}
	response.OK(c, out)
}
