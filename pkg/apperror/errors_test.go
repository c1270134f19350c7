package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Validation("title is required"), KindValidation},
		{fmt.Errorf("%w: connection reset", ErrStoreUnavailable), KindStoreUnavailable},
		{ErrPermissionDenied, KindPermissionDenied},
		{fmt.Errorf("load: %w", ErrNotFound), KindNotFound},
		{ErrUnauthorized, KindUnauthorized},
		{New(http.StatusBadRequest, "invalid id", ErrBadRequest), KindBadRequest},
		{ErrRateLimited, KindRateLimited},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), tt.err.Error())
	}
}

func TestMapErrorToStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, MapErrorToStatus(ErrNotFound))
	assert.Equal(t, http.StatusForbidden, MapErrorToStatus(ErrPermissionDenied))
	assert.Equal(t, http.StatusUnauthorized, MapErrorToStatus(ErrUnauthorized))
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatus(Validation("bad")))
	assert.Equal(t, http.StatusServiceUnavailable, MapErrorToStatus(fmt.Errorf("%w: down", ErrStoreUnavailable)))
	assert.Equal(t, http.StatusTooManyRequests, MapErrorToStatus(ErrRateLimited))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatus(errors.New("boom")))
	assert.Equal(t, http.StatusTeapot, MapErrorToStatus(New(http.StatusTeapot, "", ErrNotFound)))
}

func TestAppError_Message(t *testing.T) {
	assert.Equal(t, "custom", New(http.StatusBadRequest, "custom", ErrBadRequest).Error())
	assert.Equal(t, ErrNotFound.Error(), New(http.StatusNotFound, "", ErrNotFound).Error())
	assert.Equal(t, http.StatusText(http.StatusConflict), New(http.StatusConflict, "", nil).Error())
}
