package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindInvalidArgument, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindInvalidState, http.StatusUnprocessableEntity},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.kind.HTTPStatus())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("fund not found: %s", "AAK")))
	assert.Equal(t, KindInvalidArgument, KindOf(InvalidArgument("amount must be positive")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Forbidden("portfolio does not belong to user %d", 7)
	wrapped := fmt.Errorf("update portfolio: %w", base)

	assert.True(t, IsKind(wrapped, KindForbidden))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindInternal, cause, "query fund prices")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query fund prices")
	assert.Contains(t, err.Error(), "socket closed")
}
