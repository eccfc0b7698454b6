package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigilcam/internal/core/services"
	"vigilcam/internal/infrastructure/middleware"
	"vigilcam/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeviceSecret = "device-secret"

func newAlertRouter(t *testing.T) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	alertService := services.NewAlertService(
		services.DefaultAlertConfig(),
		memory.NewEventRepository(),
		nil, nil, nil,
	)
	authService := services.NewAuthService("test-secret", 15*time.Minute, time.Hour)

	router := gin.New()
	NewAlertHandler(alertService).SetupRoutes(router,
		middleware.DeviceSecretMiddleware(testDeviceSecret),
		middleware.AuthMiddleware(authService),
	)
	return router, authService
}

func postAlert(t *testing.T, router *gin.Engine, secret string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/device/alert", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("x-device-secret", secret)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestIngestAlert_CreatesEvent(t *testing.T) {
	router, _ := newAlertRouter(t)

	w := postAlert(t, router, testDeviceSecret, map[string]interface{}{
		"device_id": "esp32-cam-01",
		"motion":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Event struct {
			ID       string `json:"id"`
			DeviceID string `json:"device_id"`
			Type     string `json:"type"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Event.ID)
	assert.Equal(t, "esp32-cam-01", resp.Event.DeviceID)
	assert.Equal(t, "motion", resp.Event.Type)
}

func TestIngestAlert_MissingSecretRejected(t *testing.T) {
	router, _ := newAlertRouter(t)

	w := postAlert(t, router, "", map[string]interface{}{
		"device_id": "esp32-cam-01",
		"motion":    true,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestAlert_RetransmitAcknowledgedAsDuplicate(t *testing.T) {
	router, _ := newAlertRouter(t)

	body := map[string]interface{}{"device_id": "esp32-cam-01", "motion": true}
	w1 := postAlert(t, router, testDeviceSecret, body)
	require.Equal(t, http.StatusCreated, w1.Code)

	w2 := postAlert(t, router, testDeviceSecret, body)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "duplicate")
}

func TestIngestAlert_InvalidDeviceID(t *testing.T) {
	router, _ := newAlertRouter(t)

	w := postAlert(t, router, testDeviceSecret, map[string]interface{}{
		"device_id": "bad/device",
		"motion":    true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_RequiresToken(t *testing.T) {
	router, _ := newAlertRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/events", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListEvents_ReturnsIngestedEvents(t *testing.T) {
	router, authService := newAlertRouter(t)

	w := postAlert(t, router, testDeviceSecret, map[string]interface{}{
		"device_id":   "esp32-cam-01",
		"ultra_close": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	token, err := authService.GenerateToken("user-1", "alice", "owner")
	require.NoError(t, err)

	w2 := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/events?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp struct {
		Count  int `json:"count"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "ultra_close", resp.Events[0].Type)
}
