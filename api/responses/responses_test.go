package responses

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteSuccessMergesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]any{"cart": map[string]any{"subtotal": 1200}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "cart")
}

func TestWriteSuccessStatusCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]any{"order": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "abc", body["order"])
}

func TestWriteSuccessNilFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, nil)

	body := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"success": true}, body)
}

func TestWriteErrorTypedValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
		WithDetails(map[string]string{"field": "quantity"})
	WriteError(context.Background(), testLogger(), rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(pkgerrors.CodeValidation), errObj["code"])
	assert.Equal(t, "quantity must be positive", errObj["message"])
	assert.Contains(t, errObj, "details")
}

func TestWriteErrorInternalHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "pg connection refused at 10.0.0.3")
	WriteError(context.Background(), testLogger(), rec, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "internal server error", errObj["message"])
}

func TestWriteErrorUntypedDefaultsToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, string(pkgerrors.CodeInternal), errObj["code"])
}

func TestWriteErrorIdempotencyStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeIdempotency, "request payload changed")
	WriteError(context.Background(), testLogger(), rec, err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errObj["code"])
	assert.Equal(t, "request payload changed", errObj["message"])
}
