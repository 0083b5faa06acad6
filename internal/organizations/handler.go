package organizations

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/pkg/database"
	"github.com/campus-pulse/backend/pkg/response"
)

// JoinHook runs after a user becomes a member of an organization
// (QR identity provisioning, mandatory-event auto-registration).
type JoinHook func(ctx context.Context, orgID, userID uuid.UUID)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo   *Repository
	onJoin JoinHook
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// SetJoinHook installs the post-join side effects.
func (h *Handler) SetJoinHook(hook JoinHook) {
	h.onJoin = hook
}

// CreateRequest is the body for POST /organizations.
type CreateRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

// JoinRequest is the body for POST /organizations/join.
type JoinRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
}

// ReviewRequest is the body for POST /organizations/:id/review.
type ReviewRequest struct {
	Approve bool `json:"approve"`
}

// Create handles POST /organizations. The creator becomes the org admin;
// the organization awaits platform-admin approval before it can be joined.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org := &models.Organization{
		Name:        strings.TrimSpace(body.Name),
		Description: strings.TrimSpace(body.Description),
		JoinCode:    generateJoinCode(),
		CreatedBy:   userID,
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		if database.IsUniqueViolation(err) {
			// Join codes are 60 bits of entropy; a collision means retry once.
			org.JoinCode = generateJoinCode()
			err = h.repo.Create(c.Request.Context(), org)
		}
		if err != nil {
			h.logger.Error("create organization failed", zap.Error(err))
			response.Internal(c, "failed to create organization")
			return
		}
	}
	if _, err := h.repo.AddMember(c.Request.Context(), org.ID, userID, models.OrgRoleAdmin, models.JoinedViaCode); err != nil {
		response.Internal(c, "failed to add you as admin")
		return
	}
	response.Created(c, org)
}

// Review handles POST /organizations/:id/review (platform admin only).
// pending -> approved|rejected, terminal either way.
func (h *Handler) Review(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	reviewerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.OrgStatusRejected
	if body.Approve {
		status = models.OrgStatusApproved
	}
	org, err := h.repo.Review(c.Request.Context(), orgID, reviewerID, status)
	if err != nil {
		if database.IsNotFound(err) {
			response.Conflict(c, "organization is not pending review")
			return
		}
		response.Internal(c, "failed to review organization")
		return
	}
	response.OK(c, org)
}

// ListPending handles GET /organizations/pending (platform admin only).
func (h *Handler) ListPending(c *gin.Context) {
	orgs, err := h.repo.ListPending(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// Join handles POST /organizations/join. Adds the current user as a member
// by join code.
func (h *Handler) Join(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body JoinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "join_code required")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.JoinCode))
	org, err := h.repo.GetByJoinCode(c.Request.Context(), code)
	if err != nil {
		response.NotFound(c, "organization not found")
		return
	}
	h.join(c, org, userID, models.JoinedViaCode)
}

// JoinByInvite handles POST /organizations/invites/:token/join.
func (h *Handler) JoinByInvite(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	inv, err := h.repo.GetInviteByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.NotFound(c, "invite not found")
		return
	}
	if !inv.Valid(time.Now()) {
		response.BadRequest(c, "invite is no longer valid")
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), inv.OrganizationID)
	if err != nil {
		response.NotFound(c, "organization not found")
		return
	}
	created := h.join(c, org, userID, models.JoinedViaInvite)
	if created {
		if err := h.repo.MarkInviteUsed(c.Request.Context(), inv.ID); err != nil {
			h.logger.Warn("mark invite used failed", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		}
	}
}

func (h *Handler) join(c *gin.Context, org *models.Organization, userID uuid.UUID, via string) bool {
	if org.Status != models.OrgStatusApproved || !org.IsActive {
		response.BadRequest(c, "organization is not accepting members")
		return false
	}
	created, err := h.repo.AddMember(c.Request.Context(), org.ID, userID, models.OrgRoleMember, via)
	if err != nil {
		response.Internal(c, "failed to join organization")
		return false
	}
	if created && h.onJoin != nil {
		h.onJoin(c.Request.Context(), org.ID, userID)
	}
	response.OK(c, org)
	return created
}

// ListMine handles GET /organizations. Returns orgs the current user is a
// member of.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	orgs, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// ListMembers handles GET /organizations/:id/members. Requires organizer or
// admin role in the org.
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.canManage(c, orgID, userID) {
		response.Forbidden(c, "not authorized for this organization")
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// PromoteRequest is the body for POST /organizations/:id/promote.
type PromoteRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=member organizer admin"`
}

// Promote handles POST /organizations/:id/promote. Org admins set member roles.
func (h *Handler) Promote(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	actorID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := h.repo.GetMemberRole(c.Request.Context(), orgID, actorID)
	if role != models.OrgRoleAdmin && !isPlatformAdmin(c) {
		response.Forbidden(c, "only organization admins can change roles")
		return
	}
	var body PromoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	existing, err := h.repo.GetMemberRole(c.Request.Context(), orgID, body.UserID)
	if err != nil || existing == "" {
		response.NotFound(c, "user is not a member of this organization")
		return
	}
	if err := h.repo.SetMemberRole(c.Request.Context(), orgID, body.UserID, body.Role); err != nil {
		response.Internal(c, "failed to update role")
		return
	}
	response.OK(c, gin.H{"user_id": body.UserID, "role": body.Role})
}

// GetInvite handles GET /organizations/:id/invite. Returns the active invite
// for the org, creating one (30-day expiry) when none is redeemable.
func (h *Handler) GetInvite(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.canManage(c, orgID, userID) {
		response.Forbidden(c, "not authorized for this organization")
		return
	}
	now := time.Now()
	inv, err := h.repo.GetActiveInvite(c.Request.Context(), orgID)
	if err != nil || !inv.Valid(now) {
		expires := now.Add(30 * 24 * time.Hour)
		inv = &models.Invite{
			OrganizationID: orgID,
			Token:          generateInviteToken(),
			CreatedBy:      userID,
			ExpiresAt:      &expires,
		}
		if err := h.repo.CreateInvite(c.Request.Context(), inv); err != nil {
			response.Internal(c, "failed to create invite")
			return
		}
	}
	response.OK(c, gin.H{
		"invite":   inv,
		"join_url": "/organizations/invites/" + inv.Token + "/join",
	})
}

func (h *Handler) canManage(c *gin.Context, orgID, userID uuid.UUID) bool {
	if isPlatformAdmin(c) {
		return true
	}
	ok, _ := h.repo.UserCanManage(c.Request.Context(), orgID, userID)
	return ok
}

func isPlatformAdmin(c *gin.Context) bool {
	role, _ := c.Get(middleware.ContextUserRole)
	return role == string(models.RoleAdmin)
}

// generateJoinCode returns a 12-char uppercase code.
func generateJoinCode() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)[:12]
}

// generateInviteToken returns a 48-char URL-safe token.
func generateInviteToken() string {
	b := make([]byte, 36)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
