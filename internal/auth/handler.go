package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/pkg/response"
	"github.com/campus-pulse/backend/pkg/utils"
)

// BalanceReader exposes a user's derived points balance.
type BalanceReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FullName  string `json:"full_name" binding:"required"`
	Phone     string `json:"phone"`
	Course    string `json:"course"`
	YearLevel *int   `json:"year_level"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo    *Repository
	jwt     *JWTService
	balance BalanceReader
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, balance BalanceReader, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, balance: balance, logger: logger}
}

// Register handles POST /auth/register. New accounts always get the user
// role; organizer and admin are granted out of band.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	profile := &CreateUserParams{
		Phone:     req.Phone,
		Course:    req.Course,
		YearLevel: req.YearLevel,
	}
	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, models.RoleUser, profile)
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /users/me. Returns the profile with the derived points
// balance (ledger sum, never a stored counter).
func (h *Handler) Me(c *gin.Context) {
	// Key literal matches middleware.ContextUserID; importing the
	// middleware package here would create an import cycle.
	userID := c.MustGet("user_id").(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	balance, err := h.balance.Balance(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("balance lookup failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to load points balance")
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic(), "points_balance": balance})
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, users)
}
