package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-network-api/internal/auth"
	"social-network-api/internal/service"
	"social-network-api/internal/storage"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	posts    service.PostService
	comments service.CommentService
	tokens   *auth.Issuer
	images   *storage.Images
	store    Pinger
	logger   *logrus.Logger
}

func NewHandler(
	users service.UserService,
	posts service.PostService,
	comments service.CommentService,
	tokens *auth.Issuer,
	images *storage.Images,
	store Pinger,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	registerJSONFieldNames()
	return &Handler{
		users:    users,
		posts:    posts,
		comments: comments,
		tokens:   tokens,
		images:   images,
		store:    store,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.HandleMethodNotAllowed = true
	router.Use(corsMiddleware(), tracing(), requestLogger(h.logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API root"})
	})
	router.GET("/health/", h.health)

	router.POST("/token/", h.obtainToken)
	router.POST("/token/refresh/", h.refreshToken)
	router.POST("/signup/", h.createUser)
	router.POST("/register/", h.createUser)

	api := router.Group("/", h.authenticate())
	{
		api.GET("/users/", h.listUsers)
		api.POST("/users/", h.createUser)
		api.GET("/users/:user_id/", h.getUser)

		api.GET("/posts/", h.listPosts)
		api.POST("/posts/", requireAuth(), h.createPost)
		api.GET("/posts/:post_id/", h.getPost)
		api.PUT("/posts/:post_id/", requireAuth(), h.updatePost)
		api.DELETE("/posts/:post_id/", requireAuth(), h.deletePost)

		api.GET("/posts/:post_id/comments/", h.listComments)
		api.POST("/posts/:post_id/comments/", requireAuth(), h.createComment)
		api.GET("/posts/:post_id/comments/:comment_id/", h.getComment)
		api.PUT("/posts/:post_id/comments/:comment_id/", requireAuth(), h.updateComment)
		api.DELETE("/posts/:post_id/comments/:comment_id/", requireAuth(), h.deleteComment)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": "ok"})
}
