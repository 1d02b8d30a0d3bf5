//nolint:noctx // Test file uses http.NewRequest for simplicity
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhashahub/crowdsource/internal/api/middleware"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/service/users"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

type testEnv struct {
	handler       *Handler
	contributions *mockContributionService
	challenges    *mockChallengeService
	languages     *mockLanguageService
	users         *mockUserService
	presigner     *mockPresigner
	tickets       *mockTickets
	health        *mockHealth
}

func setupTestHandler() *testEnv {
	env := &testEnv{
		contributions: &mockContributionService{},
		challenges:    &mockChallengeService{},
		languages:     &mockLanguageService{},
		users:         newMockUserService(),
		presigner:     &mockPresigner{},
		tickets:       &mockTickets{},
		health:        &mockHealth{},
	}
	env.handler = NewHandlerWithInterfaces(
		env.contributions, env.challenges, env.languages, env.users,
		env.presigner, env.tickets, env.health, logger.Nop(),
	)
	return env
}

func setupRouter(h *Handler, caller *users.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api/v1")
	if caller != nil {
		api.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyIdentity, *caller)
			c.Next()
		})
	}
	api.GET("/health", h.Health)
	api.GET("/languages", h.ListLanguages)
	api.GET("/languages/:code", h.GetLanguage)
	api.GET("/users", h.ListUsers)
	api.GET("/me", h.GetMe)
	api.PATCH("/me", h.UpdateMe)
	api.GET("/me/contributions", h.ListMyContributions)
	api.GET("/me/challenges", h.ListMyChallenges)
	api.POST("/contributions", h.SubmitContribution)
	api.GET("/languages/:code/contributions", h.ListLanguageContributions)
	api.POST("/contributions/:id/review", h.ReviewContribution)
	api.POST("/uploads", h.CreateUpload)
	api.GET("/challenges", h.ListChallenges)
	api.GET("/challenges/:id", h.GetChallenge)
	api.POST("/challenges", h.CreateChallenge)
	api.POST("/challenges/:id/join", h.JoinChallenge)

	return router
}

func alice() *users.Identity {
	return &users.Identity{ID: "alice", Email: "alice@example.org", Name: "Alice", Role: models.RoleUser}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestHealth(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	env.health.err = errBackend
	w = doJSON(router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}

func TestRequiresIdentity(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodPost, "/api/v1/contributions"},
		{http.MethodPost, "/api/v1/uploads"},
		{http.MethodPost, "/api/v1/challenges/ch-1/join"},
	} {
		w := doJSON(router, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestListLanguages(t *testing.T) {
	env := setupTestHandler()
	env.languages.languages = []models.LanguageMetadata{
		{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
		{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	}
	router := setupRouter(env.handler, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(2), response["total"])
	assert.Contains(t, response, "generated_at")
}

func TestGetMe_SyncsProfile(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, "alice", response["id"])
	assert.Equal(t, "Alice", response["name"])
	assert.Len(t, env.users.synced, 1)
}

func TestUpdateMe(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodPatch, "/api/v1/me", map[string]string{"preferred_language": "ta"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ta", decode(t, w)["preferred_language"])

	w = doJSON(router, http.MethodPatch, "/api/v1/me", map[string]string{"preferred_language": "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitContribution(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodPost, "/api/v1/contributions", map[string]string{
		"language": "hi",
		"kind":     "text",
		"content":  "नमस्ते दुनिया",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	response := decode(t, w)
	assert.Equal(t, "alice", response["owner_id"])
	assert.Equal(t, "hi", response["language"])
	require.Len(t, env.contributions.submitted, 1)
	assert.Equal(t, models.KindText, env.contributions.submitted[0].Kind)
	assert.Len(t, env.users.synced, 1)
}

func TestSubmitContribution_ProfileSyncFailureIsNotFatal(t *testing.T) {
	env := setupTestHandler()
	env.users.syncErr = errBackend
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodPost, "/api/v1/contributions", map[string]string{
		"language": "hi", "kind": "text", "content": "x",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmitContribution_BadBody(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/contributions", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", fmt.Errorf("%w: unsupported language", service.ErrInvalidInput), http.StatusBadRequest},
		{"upload ticket", fmt.Errorf("%w: not issued", service.ErrUploadTicket), http.StatusBadRequest},
		{"not found", fmt.Errorf("contribution x: %w", service.ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("%w: reviewer role required", service.ErrForbidden), http.StatusForbidden},
		{"already validated", service.ErrAlreadyValidated, http.StatusConflict},
		{"challenge closed", service.ErrChallengeClosed, http.StatusGone},
		{"unexpected", errBackend, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler()
			env.contributions.reviewErr = tt.err
			router := setupRouter(env.handler, alice())

			w := doJSON(router, http.MethodPost, "/api/v1/contributions/c-1/review", map[string]bool{"approve": true})
			assert.Equal(t, tt.wantStatus, w.Code)

			response := decode(t, w)
			assert.Contains(t, response, "timestamp")
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, response["error"], "exploded")
			}
		})
	}
}

func TestReviewContribution(t *testing.T) {
	env := setupTestHandler()
	reviewer := &users.Identity{ID: "rita", Name: "Rita", Role: models.RoleReviewer}
	router := setupRouter(env.handler, reviewer)

	w := doJSON(router, http.MethodPost, "/api/v1/contributions/c-9/review", map[string]bool{"approve": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.contributions.approve)
	require.NotNil(t, env.contributions.reviewer)
	assert.Equal(t, models.RoleReviewer, env.contributions.reviewer.Role)

	w = doJSON(router, http.MethodPost, "/api/v1/contributions/c-9/review", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMyContributions_Limit(t *testing.T) {
	env := setupTestHandler()
	env.contributions.listed = []models.Contribution{{ID: "a"}, {ID: "b"}}
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodGet, "/api/v1/me/contributions?language=hi&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total"])
	assert.Equal(t, 5, env.contributions.lastLimit)
	assert.Equal(t, "hi", env.contributions.lastFilter)

	for _, bad := range []string{"abc", "0", "-3", "10000"} {
		w = doJSON(router, http.MethodGet, "/api/v1/me/contributions?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", bad)
	}
}

func TestListLanguageContributions(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodGet, "/api/v1/languages/ta/contributions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ta", decode(t, w)["language"])
	assert.Equal(t, 0, env.contributions.lastLimit)

	w = doJSON(router, http.MethodGet, "/api/v1/languages/xx/contributions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUpload(t *testing.T) {
	env := setupTestHandler()
	router := setupRouter(env.handler, alice())

	before := testutil.ToFloat64(prommetrics.UploadTicketsIssuedTotal.WithLabelValues("voice"))

	w := doJSON(router, http.MethodPost, "/api/v1/uploads", map[string]string{
		"kind":         "voice",
		"content_type": "audio/webm",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	response := decode(t, w)
	key, _ := response["object_key"].(string)
	assert.Equal(t, "voice/alice/abc", key)
	assert.Equal(t, "alice", env.tickets.issued[key])
	assert.Equal(t, before+1, testutil.ToFloat64(prommetrics.UploadTicketsIssuedTotal.WithLabelValues("voice")))
}

func TestCreateUpload_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		ticketErr  error
		wantStatus int
	}{
		{"text kind", map[string]string{"kind": "text", "content_type": "text/plain"}, nil, http.StatusBadRequest},
		{"wrong content type", map[string]string{"kind": "image", "content_type": "audio/mpeg"}, nil, http.StatusBadRequest},
		{"ticket store down", map[string]string{"kind": "image", "content_type": "image/png"}, errBackend, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler()
			env.tickets.err = tt.ticketErr
			router := setupRouter(env.handler, alice())

			w := doJSON(router, http.MethodPost, "/api/v1/uploads", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateUpload_NotConfigured(t *testing.T) {
	env := setupTestHandler()
	h := NewHandlerWithInterfaces(env.contributions, env.challenges, env.languages, env.users, nil, env.tickets, nil, logger.Nop())
	router := setupRouter(h, alice())

	w := doJSON(router, http.MethodPost, "/api/v1/uploads", map[string]string{"kind": "voice", "content_type": "audio/ogg"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChallenges(t *testing.T) {
	env := setupTestHandler()
	env.challenges.active = []models.Challenge{
		{ID: "ch-1", Title: "Hindi week", Language: "hi", Kind: models.KindText},
		{ID: "ch-2", Title: "Tamil voices", Language: "ta", Kind: models.KindVoice},
	}
	router := setupRouter(env.handler, alice())

	w := doJSON(router, http.MethodGet, "/api/v1/challenges?language=ta", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = doJSON(router, http.MethodGet, "/api/v1/challenges/ch-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "Tamil voices", detail["title"])
	assert.Equal(t, float64(3), detail["participants"])

	w = doJSON(router, http.MethodGet, "/api/v1/challenges/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/challenges/ch-1/join", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ch-1", decode(t, w)["challenge_id"])

	env.challenges.joinErr = service.ErrChallengeClosed
	w = doJSON(router, http.MethodPost, "/api/v1/challenges/ch-1/join", nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/me/challenges", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestCreateChallenge(t *testing.T) {
	env := setupTestHandler()
	admin := &users.Identity{ID: "root", Role: models.RoleAdmin}
	router := setupRouter(env.handler, admin)

	w := doJSON(router, http.MethodPost, "/api/v1/challenges", map[string]interface{}{
		"title":         "Bengali stories",
		"language":      "bn",
		"kind":          "text",
		"target_count":  5,
		"duration_days": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, env.challenges.created)
	assert.Equal(t, 7, env.challenges.created.DurationDays)
	assert.Equal(t, models.RoleAdmin, env.challenges.actor.Role)

	env.challenges.createErr = service.ErrForbidden
	w = doJSON(router, http.MethodPost, "/api/v1/challenges", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetLanguage(t *testing.T) {
	env := setupTestHandler()
	env.languages.languages = []models.LanguageMetadata{{Code: "hi", Name: "Hindi", TotalContributions: 12}}
	router := setupRouter(env.handler, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/languages/hi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hindi", decode(t, w)["name"])

	w = doJSON(router, http.MethodGet, "/api/v1/languages/xx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUsers(t *testing.T) {
	env := setupTestHandler()
	env.users.stored["r"] = &models.User{ID: "r", Role: models.RoleReviewer}
	env.users.stored["u"] = &models.User{ID: "u", Role: models.RoleUser}
	router := setupRouter(env.handler, &users.Identity{ID: "root", Role: models.RoleAdmin})

	w := doJSON(router, http.MethodGet, "/api/v1/users?role=reviewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = doJSON(router, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total"])

	w = doJSON(router, http.MethodGet, "/api/v1/users?role=owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
