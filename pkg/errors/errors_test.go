package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NotFound("exam", nil), http.StatusNotFound},
		{Validation("bad input", nil), http.StatusBadRequest},
		{ChannelDelivery("send failed", nil), http.StatusBadGateway},
		{CalendarAuth("state invalid", nil), http.StatusUnauthorized},
		{Persistence(errors.New("db down")), http.StatusInternalServerError},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCodeSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("register: %w", NotFound("exam", nil))

	assert.True(t, IsCode(err, ErrNotFound))
	assert.False(t, IsCode(err, ErrValidation))
	assert.False(t, IsCode(errors.New("plain"), ErrNotFound))
}
