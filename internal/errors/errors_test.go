package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listenupapp/diary-server/internal/errors"
)

func TestCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeAlreadyExists, http.StatusConflict},
		{errors.CodeConflict, http.StatusConflict},
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodeUnauthorized, http.StatusUnauthorized},
		{errors.CodeInvalidCredentials, http.StatusUnauthorized},
		{errors.CodeTokenExpired, http.StatusUnauthorized},
		{errors.CodeForbidden, http.StatusForbidden},
		{errors.CodeInternal, http.StatusInternalServerError},
		{errors.Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := errors.AlreadyExists("Tag already exists.")
	wrapped := fmt.Errorf("create tag: %w", err)

	assert.True(t, errors.Is(wrapped, errors.ErrAlreadyExists))
	assert.False(t, errors.Is(wrapped, errors.ErrNotFound))
}

func TestWithCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.Internal("save failed").WithCause(cause)

	assert.Equal(t, "save failed: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, errors.Internal("x").Unwrap())
}

func TestWithDetailsCopies(t *testing.T) {
	base := errors.Validation("bad input")
	detailed := base.WithDetails(map[string]string{"title": "is required"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.Equal(t, http.StatusBadRequest, detailed.HTTPStatus())
}
