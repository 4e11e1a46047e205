package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubStore struct {
	healthErr error
}

func (s *stubStore) Init() error        { return nil }
func (s *stubStore) Close() error       { return nil }
func (s *stubStore) HealthCheck() error { return s.healthErr }
func (s *stubStore) GetDB() *gorm.DB    { return nil }

func TestHandleCheckHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  *stubStore
		status string
	}{
		{"Healthy", &stubStore{}, "ok"},
		{"DatabaseDown", &stubStore{healthErr: errors.New("connection refused")}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", HandleCheckHealth(tt.store, 8080))

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			var body HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, 8080, body.Port)
		})
	}
}
