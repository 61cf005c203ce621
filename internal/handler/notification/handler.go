package notification

import (
	"fmt"

	"github.com/gin-gonic/gin"

	notificationService "github.com/examnotify/exam-api/internal/service/notification"
	"github.com/examnotify/exam-api/pkg/httputil"
)

type Handler struct {
	service notificationService.Service
}

func NewHandler(service notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("/send", h.SendPending)
	}
}

// SendPending is the on-demand trigger for the batch sweep. Safe to
// call repeatedly; already-delivered records are skipped.
func (h *Handler) SendPending(c *gin.Context) {
	delivered, err := h.service.SendPending(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c,
		fmt.Sprintf("delivered %d pending notifications", delivered),
		gin.H{"delivered": delivered})
}
