package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crewdesk/bridge-api/internal/middleware"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/crewdesk/bridge-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeStatusHandler_Status_Unreachable(t *testing.T) {
	jwtSvc := services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
	handler := NewBridgeStatusHandler("ws://127.0.0.1:1/ws")

	app := drift.New()
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/bridge/status", handler.Status)

	token := generateTestToken(t, jwtSvc, uuid.New(), "alex@example.com")
	req := httptest.NewRequest(http.MethodGet, "/bridge/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.BridgeStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ws://127.0.0.1:1/ws", response.URL)
	assert.False(t, response.Reachable)
}

func TestBridgeStatusHandler_Status_Unauthenticated(t *testing.T) {
	jwtSvc := services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
	handler := NewBridgeStatusHandler("ws://127.0.0.1:1/ws")

	app := drift.New()
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/bridge/status", handler.Status)

	req := httptest.NewRequest(http.MethodGet, "/bridge/status", nil)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
