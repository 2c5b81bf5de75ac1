package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auth-api/internal/service"
)

const (
	contextUserIDKey    = "auth.user_id"
	defaultClientOrigin = "http://localhost:3000"
)

// Handler wires HTTP routes to the auth service.
type Handler struct {
	auth         service.AuthService
	clientOrigin string
	log          *logrus.Logger
}

func NewHandler(auth service.AuthService, clientOrigin string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if clientOrigin == "" {
		clientOrigin = defaultClientOrigin
	}
	return &Handler{
		auth:         auth,
		clientOrigin: clientOrigin,
		log:          logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.log), h.corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
		})
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/refresh", h.refresh)
		authGroup.GET("/logout", h.requireUser(), h.logout)

		users := api.Group("/users")
		users.GET("/me", h.requireSuperuser(), h.getMe)
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = []string{h.clientOrigin}
	cfg.AllowCredentials = true
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	return cors.New(cfg)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}

type registerRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password string  `json:"password" binding:"required,min=4,max=72"`
	// accepted for schema compatibility, never honoured
	IsSuperuser bool `json:"isSuperuser"`
}

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
}

type loginResponse struct {
	Status      string `json:"status"`
	IsSuperuser bool   `json:"isSuperuser"`
	AccessToken string `json:"accessToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), c.Writer, req.Name, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Status:      "success",
		IsSuperuser: res.IsSuperuser,
		AccessToken: res.AccessToken,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	res, err := h.auth.Refresh(c.Request.Context(), c.Writer, c.Request)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, refreshResponse{AccessToken: res.AccessToken})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), c.Writer, currentUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) getMe(c *gin.Context) {
	user, err := h.auth.GetSelf(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.auth.RequireUser(c.Request.Context(), c.Request)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(contextUserIDKey, id)
		c.Next()
	}
}

func (h *Handler) requireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.auth.RequireSuperuser(c.Request.Context(), c.Request)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(contextUserIDKey, id)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(contextUserIDKey)
	userID, _ := id.(uuid.UUID)
	return userID
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, detail := h.mapError(c, err)
	c.JSON(status, gin.H{"detail": detail})
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status, detail := h.mapError(c, err)
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (h *Handler) mapError(c *gin.Context, err error) (int, string) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		return http.StatusInternalServerError, "internal server error"
	}
	return statusForKind(svcErr.Kind), svcErr.Detail
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidCredentials, service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
