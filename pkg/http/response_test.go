package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "reservations/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		UserID string `json:"user_id"`
	}

	r := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(`{"user_id":"A"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "A", dst.UserID)

	r = httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(`{"user_id":`))
	err := DecodeJSON(r, &dst)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.Equal(t, http.StatusBadRequest, apperrors.AsAppError(err).StatusCode())

	r = httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(`{"user_id":"`+strings.Repeat("x", 64)+`"}`))
	r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 16)
	err = DecodeJSON(r, &dst)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apperrors.AsAppError(err).StatusCode())
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, []string{"Projector", "Room"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":["Projector","Room"]}`, rec.Body.String())
}
