package exam

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/handler"
	"github.com/examnotify/exam-api/internal/model"
	examService "github.com/examnotify/exam-api/internal/service/exam"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/httputil"
)

type Handler struct {
	service examService.Service
}

func NewHandler(service examService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/exams")
	{
		exams.POST("", h.CreateExam)
		exams.GET("", h.ListExams)
		exams.POST("/register", h.Register)
		exams.POST("/addToCalendar", h.AddToCalendar)
		exams.POST("/:examId/announcements", h.AddAnnouncement)
		exams.POST("/:examId/materials", h.AddMaterial)
	}
}

func (h *Handler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	exam, err := h.service.CreateExam(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "exam created", exam)
}

func (h *Handler) ListExams(c *gin.Context) {
	exams, err := h.service.ListExams(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exams)
}

func (h *Handler) Register(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid exam id", err))
		return
	}

	result, err := h.service.Register(c.Request.Context(), userID, examID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, result.Message, result)
}

func (h *Handler) AddToCalendar(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid exam id", err))
		return
	}

	result, err := h.service.AddToCalendar(c.Request.Context(), userID, examID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, result.Message, result)
}

func (h *Handler) AddAnnouncement(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid exam id", err))
		return
	}

	var req model.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	exam, err := h.service.AddAnnouncement(c.Request.Context(), examID, req.Announcement)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "announcement added", exam)
}

func (h *Handler) AddMaterial(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid exam id", err))
		return
	}

	var req model.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	exam, err := h.service.AddMaterial(c.Request.Context(), examID, req.Material)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "material added", exam)
}
