package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/student-records/api"
	"github.com/sahilchouksey/student-records/database"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/services"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminPassword = "admin-password"

type testServer struct {
	app   *fiber.App
	store *database.GORMStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := database.NewGORMStore(db)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init())

	seeder := database.NewSeeder(db)
	_, err = seeder.SeedAdmin(database.AdminAccount{Email: "admin@test.edu", Password: adminPassword})
	require.NoError(t, err)

	hash, err := auth.HashPassword("student-password")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{Email: "student@test.edu", PasswordHash: hash, Name: "Student", Role: model.RoleStudent}).Error)

	server := api.NewAPIServer(":0")
	app := server.GetEngine()
	SetupRoutes(app, Dependencies{
		Store:                store,
		Port:                 8080,
		JWTManager:           auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Issuer: "test"}),
		InstituteRequests:    services.NewInstituteRequestService(db, services.InstituteRequestServiceConfig{}),
		BruteForceProtection: middleware.NewBruteForceProtection(nil),
	})

	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	data := body["data"].(map[string]interface{})
	return data["access_token"].(string)
}

func submission(aisheCode string) map[string]interface{} {
	return map[string]interface{}{
		"aisheCode":      aisheCode,
		"instituteType":  "University",
		"state":          "Madhya Pradesh",
		"district":       "Bhopal",
		"universityName": "Test University",
		"address":        "1 Campus Road, Bhopal",
		"email":          "admin@test.edu",
		"headOfInstitute": map[string]interface{}{
			"name": "Dr. Head", "email": "head@test.edu", "contact": "9876543210",
		},
		"modalOfficer": map[string]interface{}{
			"name": "Nodal Officer", "email": "nodal@test.edu", "contact": "9876543211",
		},
		"naacGrading": true,
		"naacGrade":   "A+",
	}
}

func TestInstituteRequestFlow(t *testing.T) {
	s := setupTestServer(t)

	// submit
	status, body := s.do(t, http.MethodPost, "/institute-requests/submit", submission("U-0001"), "")
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, true, body["success"])
	requestID, _ := body["requestId"].(string)
	require.NotEmpty(t, requestID)

	// duplicate
	status, body = s.do(t, http.MethodPost, "/institute-requests/submit", submission("U-0001"), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "already exists")

	// missing universityName
	payload := submission("U-0002")
	delete(payload, "universityName")
	status, body = s.do(t, http.MethodPost, "/institute-requests/submit", payload, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["message"], "universityName")
	assert.Equal(t, "universityName", body["error"].(map[string]interface{})["field"])

	// invalid email
	payload = submission("U-0003")
	payload["email"] = "invalid-email"
	status, body = s.do(t, http.MethodPost, "/institute-requests/submit", payload, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["message"], "email")

	// malformed body
	req := httptest.NewRequest(http.MethodPost, "/institute-requests/submit", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// privileged reads
	status, _ = s.do(t, http.MethodGet, "/institute-requests/all", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	studentToken := s.login(t, "student@test.edu", "student-password")
	status, _ = s.do(t, http.MethodGet, "/institute-requests/all", nil, studentToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	adminToken := s.login(t, "admin@test.edu", adminPassword)
	status, body = s.do(t, http.MethodGet, "/institute-requests/all", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	list := body["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, requestID, list[0].(map[string]interface{})["id"])

	status, body = s.do(t, http.MethodGet, "/api/institute-requests/"+requestID, nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	record := body["data"].(map[string]interface{})
	assert.Equal(t, "pending", record["status"])
	assert.Equal(t, "Test University", record["universityName"])

	status, _ = s.do(t, http.MethodGet, "/institute-requests/unknown-id", nil, adminToken)
	assert.Equal(t, fiber.StatusNotFound, status)

	// review
	status, body = s.do(t, http.MethodPost, "/institute-requests/"+requestID+"/reject", map[string]string{"reason": "incomplete"}, adminToken)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "rejected", body["data"].(map[string]interface{})["status"])

	status, _ = s.do(t, http.MethodPost, "/institute-requests/"+requestID+"/approve", nil, adminToken)
	assert.Equal(t, fiber.StatusConflict, status)

	// the rejected code can be submitted again
	status, _ = s.do(t, http.MethodPost, "/institute-requests/submit", submission("U-0001"), "")
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestAuthFlow(t *testing.T) {
	s := setupTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "admin@test.edu", "password": "wrong-password"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "admin@test.edu", "password": adminPassword}, "")
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	accessToken := data["access_token"].(string)
	refreshToken := data["refresh_token"].(string)
	assert.Equal(t, "admin", data["user"].(map[string]interface{})["role"])

	status, body = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, "")
	require.Equal(t, fiber.StatusOK, status, body)

	// a refresh token is single use
	status, _ = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/auth/logout", nil, accessToken)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/institute-requests/all", nil, accessToken)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthFlow_ConcurrentRefreshIssuesOnePair(t *testing.T) {
	s := setupTestServer(t)

	status, body := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "admin@test.edu", "password": adminPassword}, "")
	require.Equal(t, fiber.StatusOK, status)
	refreshToken := body["data"].(map[string]interface{})["refresh_token"].(string)
	raw, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	require.NoError(t, err)

	const workers = 4
	statuses := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.app.Test(req, -1)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, code := range statuses {
		switch code {
		case fiber.StatusOK:
			ok++
		case fiber.StatusUnauthorized:
			rejected++
		}
	}
	assert.Equal(t, 1, ok, "statuses: %v", statuses)
	assert.Equal(t, workers-1, rejected, "statuses: %v", statuses)
}

func TestOptionalAuth_DatabaseFailureIsServerError(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "admin@test.edu", adminPassword)

	require.NoError(t, s.store.GetDB().Migrator().DropTable(&model.JWTTokenBlacklist{}))

	status, body := s.do(t, http.MethodGet, "/institute-requests/all", nil, token)
	assert.Equal(t, fiber.StatusInternalServerError, status, body)

	// anonymous callers never reach the blacklist
	status, _ = s.do(t, http.MethodGet, "/institute-requests/all", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		status, body := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, float64(8080), body["port"])
	}

	status, body := s.do(t, http.MethodGet, "/does-not-exist", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}
