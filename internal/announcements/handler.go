package announcements

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/pkg/response"
)

// CreateRequest is the body for POST /announcements.
type CreateRequest struct {
	Title          string  `json:"title" binding:"required"`
	Content        string  `json:"content" binding:"required"`
	OrganizationID *string `json:"organization_id"`
	Pinned         bool    `json:"pinned"`
	ExpiresAt      *string `json:"expires_at"`
}

// Handler handles announcement HTTP endpoints.
type Handler struct {
	repo *Repository
	orgs *organizations.Repository
}

// NewHandler creates an announcements handler.
func NewHandler(repo *Repository, orgs *organizations.Repository) *Handler {
	return &Handler{repo: repo, orgs: orgs}
}

// Create handles POST /announcements. Global announcements are admin-only;
// org announcements need an organizer of that org.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)

	var orgID *uuid.UUID
	if req.OrganizationID != nil {
		id, err := uuid.Parse(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		orgID = &id
	}
	if !h.canPost(c, orgID, userID, role) {
		response.Forbidden(c, "not allowed to post this announcement")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			response.BadRequest(c, "invalid expires_at")
			return
		}
		expiresAt = &t
	}

	a := &models.Announcement{
		Title:          req.Title,
		Content:        req.Content,
		OrganizationID: orgID,
		CreatedBy:      userID,
		Pinned:         req.Pinned,
		ExpiresAt:      expiresAt,
	}
	if err := h.repo.Create(c.Request.Context(), a); err != nil {
		response.Internal(c, "failed to create announcement")
		return
	}
	response.Created(c, a)
}

// List handles GET /announcements?organization_id=.
func (h *Handler) List(c *gin.Context) {
	var orgID *uuid.UUID
	if s := c.Query("organization_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		orgID = &id
	}
	list, err := h.repo.List(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to list announcements")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /announcements/:id.
func (h *Handler) Update(c *gin.Context) {
	a, ok := h.loadManaged(c)
	if !ok {
		return
	}
	var req struct {
		Title     *string `json:"title"`
		Content   *string `json:"content"`
		Pinned    *bool   `json:"pinned"`
		ExpiresAt *string `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = *req.Content
	}
	if req.Pinned != nil {
		a.Pinned = *req.Pinned
	}
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			response.BadRequest(c, "invalid expires_at")
			return
		}
		a.ExpiresAt = &t
	}
	if err := h.repo.Update(c.Request.Context(), a); err != nil {
		response.Internal(c, "failed to update announcement")
		return
	}
	response.OK(c, a)
}

// Delete handles DELETE /announcements/:id.
func (h *Handler) Delete(c *gin.Context) {
	a, ok := h.loadManaged(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), a.ID); err != nil {
		response.Internal(c, "failed to delete announcement")
		return
	}
	response.NoContent(c)
}

// loadManaged loads the announcement and enforces write access, writing the
// error response itself when access fails.
func (h *Handler) loadManaged(c *gin.Context) (*models.Announcement, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid announcement id")
		return nil, false
	}
	a, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "announcement not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)
	if !h.canPost(c, a.OrganizationID, userID, role) {
		response.Forbidden(c, "not allowed to manage this announcement")
		return nil, false
	}
	return a, true
}

func (h *Handler) canPost(c *gin.Context, orgID *uuid.UUID, userID uuid.UUID, role string) bool {
	if role == string(models.RoleAdmin) {
		return true
	}
	if orgID == nil {
		return false
	}
	ok, err := h.orgs.UserCanManage(c.Request.Context(), *orgID, userID)
	return err == nil && ok
}
