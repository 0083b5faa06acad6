package leaderboard

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/pkg/redis"
	"github.com/campus-pulse/backend/pkg/response"
)

const (
	cacheTTL     = 30 * time.Second
	defaultLimit = 50
	maxLimit     = 200
)

// Handler handles the leaderboard endpoint with a short Redis cache in front
// of the ledger aggregation.
type Handler struct {
	repo   *Repository
	cache  *redis.Client
	logger *zap.Logger
}

// NewHandler creates a leaderboard handler. cache may be nil.
func NewHandler(repo *Repository, cache *redis.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, cache: cache, logger: logger}
}

func cacheKey(orgID *uuid.UUID, limit int) string {
	scope := "global"
	if orgID != nil {
		scope = orgID.String()
	}
	return "leaderboard:" + scope + ":" + strconv.Itoa(limit)
}

// Top handles GET /leaderboard?organization_id=&limit=.
func (h *Handler) Top(c *gin.Context) {
	var orgID *uuid.UUID
	if s := c.Query("organization_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		orgID = &id
	}
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	key := cacheKey(orgID, limit)
	if h.cache != nil {
		if raw, err := h.cache.Get(c.Request.Context(), key).Result(); err == nil {
			var entries []*Entry
			if json.Unmarshal([]byte(raw), &entries) == nil {
				response.OK(c, entries)
				return
			}
		}
	}

	entries, err := h.repo.Top(c.Request.Context(), orgID, limit)
	if err != nil {
		response.Internal(c, "failed to load leaderboard")
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	if h.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := h.cache.Set(c.Request.Context(), key, raw, cacheTTL).Err(); err != nil {
				h.logger.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}
	response.OK(c, entries)
}
