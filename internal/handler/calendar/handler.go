package calendar

import (
	"net/http"

	"github.com/gin-gonic/gin"

	calendarService "github.com/examnotify/exam-api/internal/service/calendar"
	"github.com/examnotify/exam-api/pkg/logger"
)

type Handler struct {
	service calendarService.Service
	logger  *logger.Logger
}

func NewHandler(service calendarService.Service, l *logger.Logger) *Handler {
	return &Handler{service: service, logger: l}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// The path must match the redirect URL registered with the provider.
	r.GET("/oauth2callback", h.Callback)
}

// Callback is the provider's phase-2 redirect target. The caller is a
// browser, so both outcomes end in a redirect rather than a JSON body.
func (h *Handler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	redirectURL, err := h.service.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		h.logger.Error(err, "calendar authorization callback failed")
	}
	c.Redirect(http.StatusFound, redirectURL)
}
