package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Echelon133/Blobb/internal/cache"
	"github.com/Echelon133/Blobb/internal/social"
	"github.com/Echelon133/Blobb/internal/store"
	"github.com/Echelon133/Blobb/pkg/logging"
	"github.com/Echelon133/Blobb/pkg/telemetry"
)

// Defaults applied to pagination query parameters when absent.
const (
	defaultSkip  = 0
	defaultLimit = 5
)

// viewerHeader carries the authenticated user's id. Session resolution is
// the job of whatever sits in front of this service.
const viewerHeader = "X-Blobb-User"

// Router sets up API routes
type Router struct {
	users   *social.UserDirectory
	follows *social.FollowIndex
	content *social.ContentGraph
	likes   *social.LikeToggle
	feed    *social.FeedBuilder
	tags    *social.TagRanker
	logger  *zap.Logger
}

// NewRouter wires the engine components over the given store and cache.
func NewRouter(st store.GraphStore, redisCache *cache.Cache) *Router {
	follows := social.NewFollowIndex(st)
	return &Router{
		users:   social.NewUserDirectory(st, follows),
		follows: follows,
		content: social.NewContentGraph(st),
		likes:   social.NewLikeToggle(st),
		feed:    social.NewFeedBuilder(st),
		tags:    social.NewTagRanker(st, redisCache),
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(traceMiddleware())

	engine.GET("/health", r.healthHandler)

	users := engine.Group("/api/users")
	{
		users.POST("", r.registerUser)
		users.GET("", r.getUserByUsername)
		users.GET("/:uuid", r.getUser)
		users.GET("/:uuid/profile", r.getUserProfile)
		users.GET("/:uuid/follow", r.checkFollow)
		users.POST("/:uuid/follow", r.followUser)
		users.POST("/:uuid/unfollow", r.unfollowUser)
		users.GET("/:uuid/following", r.listFollowing)
		users.GET("/:uuid/followers", r.listFollowers)
		users.GET("/:uuid/recentBlobbs", r.recentBlobbs)
	}

	blobbs := engine.Group("/api/blobbs")
	{
		blobbs.POST("", r.postBlobb)
		blobbs.GET("/:uuid", r.getBlobb)
		blobbs.DELETE("/:uuid", r.deleteBlobb)
		blobbs.GET("/:uuid/info", r.getBlobbInfo)
		blobbs.GET("/:uuid/responses", r.listResponses)
		blobbs.GET("/:uuid/reblobbs", r.listReblobbs)
		blobbs.GET("/:uuid/like", r.checkLike)
		blobbs.POST("/:uuid/like", r.likeBlobb)
		blobbs.POST("/:uuid/unlike", r.unlikeBlobb)
		blobbs.POST("/:uuid/respond", r.respondToBlobb)
		blobbs.POST("/:uuid/reblobb", r.reblobbOfBlobb)
	}

	tags := engine.Group("/api/tags")
	{
		tags.GET("", r.getTagByName)
		tags.GET("/popular", r.listPopularTags)
		tags.GET("/:uuid/recentBlobbs", r.recentTaggedBlobbs)
	}

	engine.GET("/api/feed", r.getFeed)
}

// traceMiddleware opens a span per request
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "api "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "blobb-api",
	})
}

// viewer pulls the authenticated user's id out of the request. When the
// header is absent the request is rejected before touching the engine.
func viewer(c *gin.Context) (string, bool) {
	id := c.GetHeader(viewerHeader)
	if id == "" {
		c.JSON(http.StatusUnauthorized, NewError(http.StatusUnauthorized, "missing "+viewerHeader+" header"))
		return "", false
	}
	return id, true
}

// pagination reads skip/limit query parameters, applying the documented
// defaults. Non-numeric values are rejected outright; negative values
// pass through so the engine rejects them.
func pagination(c *gin.Context) (int, int, bool) {
	skip := defaultSkip
	if v := c.Query("skip"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "skip must be an integer"))
			return 0, 0, false
		}
		skip = i
	}
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "limit must be an integer"))
			return 0, 0, false
		}
		limit = i
	}
	return skip, limit, true
}
