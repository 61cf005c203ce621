package user

import (
	"github.com/gin-gonic/gin"

	"github.com/examnotify/exam-api/internal/handler"
	"github.com/examnotify/exam-api/internal/model"
	examService "github.com/examnotify/exam-api/internal/service/exam"
	notificationService "github.com/examnotify/exam-api/internal/service/notification"
	userService "github.com/examnotify/exam-api/internal/service/user"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/httputil"
)

type Handler struct {
	users         userService.Service
	exams         examService.Service
	notifications notificationService.Service
}

func NewHandler(users userService.Service, exams examService.Service, notifications notificationService.Service) *Handler {
	return &Handler{users: users, exams: exams, notifications: notifications}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.GetUser)
		users.GET("/registeredExams", h.ListRegisteredExams)
		users.GET("/notifications", h.ListNotifications)
		users.POST("/updatePreferences", h.UpdatePreferences)
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	user, err := h.users.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "user created", user)
}

func (h *Handler) GetUser(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

func (h *Handler) ListRegisteredExams(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	exams, err := h.exams.ListRegistered(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exams)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	notifications, err := h.notifications.ListForUser(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	user, err := h.users.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "preferences updated", user)
}
