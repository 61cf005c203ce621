package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/examnotify/exam-api/pkg/errors"
)

// HeaderUserID carries the acting user's identity. There is no session
// layer; callers identify themselves per request.
const HeaderUserID = "X-User-ID"

// UserID extracts and parses the acting user's id from the request.
func UserID(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(HeaderUserID)
	if raw == "" {
		return uuid.Nil, apperrors.Validation("missing X-User-ID header", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid X-User-ID header", err)
	}
	return id, nil
}
