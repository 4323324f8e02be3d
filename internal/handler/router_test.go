package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/moviecatalog/internal/auth"
	"github.com/hitoshi/moviecatalog/internal/metrics"
	"github.com/hitoshi/moviecatalog/internal/middleware"
	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/security"
)

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte("router-test-secret-key-32-bytes!"),
		Expiration: time.Hour,
		Issuer:     "moviecatalog",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestRouterDeps はモックサービスを使ったルーター依存を生成する。
func newTestRouterDeps(t *testing.T) *RouterDeps {
	t.Helper()
	ts := newTestTokenService(t)
	return &RouterDeps{
		TokenVerifier:     ts,
		TokenIssuer:       ts,
		CORSAllowedOrigin: "http://localhost:3000",
		DemoTokenEnabled:  true,
		Validator:         newTestValidator(),
		Sanitizer:         security.NewTextSanitizer(),
		PageMaxSize:       100,
		ActorService: &mockActorService{
			listAllFn: func(ctx context.Context) ([]*model.Actor, error) {
				return []*model.Actor{sampleActor()}, nil
			},
			searchFn: func(ctx context.Context, term string, req model.PageRequest) (*model.Page[*model.Actor], error) {
				return model.NewPage([]*model.Actor{sampleActor()}, req, 1), nil
			},
			count: 3,
		},
		MovieService: &mockMovieService{
			listAllFn: func(ctx context.Context) ([]*model.Movie, error) {
				return []*model.Movie{sampleMovie()}, nil
			},
			count: 4,
		},
	}
}

func doRequest(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewRouter_ProtectedRoutes_NoToken_Returns401(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/actors/all"},
		{http.MethodGet, "/api/actors/paged"},
		{http.MethodGet, "/api/actors/1"},
		{http.MethodPost, "/api/actors"},
		{http.MethodPut, "/api/actors/1"},
		{http.MethodDelete, "/api/actors/1"},
		{http.MethodGet, "/api/movies/all"},
		{http.MethodGet, "/api/movies/tt0111161"},
		{http.MethodDelete, "/api/movies/tt0111161"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := doRequest(router, p.method, p.path, "")

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeUnauthenticated {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthenticated)
			}
		})
	}
}

func TestNewRouter_ProtectedRoute_InvalidToken_Returns401(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	w := doRequest(router, http.MethodGet, "/api/actors/all", "not-a-jwt")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeInvalidToken {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidToken)
	}
}

// TestNewRouter_DemoTokenFlow はデモ用トークンで保護されたルートにアクセスできることを検証する。
func TestNewRouter_DemoTokenFlow(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	tokenResp := doRequest(router, http.MethodGet, "/api/auth/test-token", "")
	if tokenResp.Code != http.StatusOK {
		t.Fatalf("test-token status = %d, want %d", tokenResp.Code, http.StatusOK)
	}
	token := tokenResp.Body.String()

	for _, path := range []string{"/api/actors/all", "/api/movies/all"} {
		w := doRequest(router, http.MethodGet, path, token)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestNewRouter_PublicRoutes_NoTokenRequired(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/api/actors/search?searchTerm=test", ""},
		{"/api/actors/stats/requests", "3"},
		{"/api/movies/stats/requests", "4"},
		{"/health", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path, "")

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if tt.wantBody != "" && strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

// TestNewRouter_PublicRoute_IgnoresInvalidToken は公開ルートでは不正なトークンを検証しないことを検証する。
func TestNewRouter_PublicRoute_IgnoresInvalidToken(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	w := doRequest(router, http.MethodGet, "/api/actors/search?searchTerm=test", "garbage")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_DemoTokenDisabled(t *testing.T) {
	deps := newTestRouterDeps(t)
	deps.DemoTokenEnabled = false
	router := NewRouter(deps)

	w := doRequest(router, http.MethodGet, "/api/auth/test-token", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNewRouter_IssueTokenWithCredentials(t *testing.T) {
	deps := newTestRouterDeps(t)
	checker, err := auth.NewCredentialChecker("alice", "s3cret")
	if err != nil {
		t.Fatalf("NewCredentialChecker: %v", err)
	}
	deps.Credentials = checker
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/test-token", strings.NewReader(`{"username":"alice","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	subject, err := deps.TokenVerifier.(*auth.TokenService).Verify(w.Body.String())
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want alice", subject)
	}
}

func TestNewRouter_NilService_RoutesNotRegistered(t *testing.T) {
	deps := newTestRouterDeps(t)
	deps.MovieService = nil
	router := NewRouter(deps)

	w := doRequest(router, http.MethodGet, "/api/movies/stats/requests", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	w := doRequest(router, http.MethodGet, "/health", "")

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	deps := newTestRouterDeps(t)
	reg := prometheus.NewRegistry()
	deps.MetricsCollector = metrics.NewCollector(reg)
	deps.MetricsGatherer = reg
	router := NewRouter(deps)

	doRequest(router, http.MethodGet, "/api/actors/stats/requests", "")
	w := doRequest(router, http.MethodGet, "/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `route="/api/actors/stats/requests"`) {
		t.Errorf("metrics output does not contain the route pattern label:\n%s", body)
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	deps := newTestRouterDeps(t)
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            0.001,
		Burst:           1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)
	deps.RateLimiter = rl
	router := NewRouter(deps)

	first := doRequest(router, http.MethodGet, "/api/actors/stats/requests", "")
	second := doRequest(router, http.MethodGet, "/api/actors/stats/requests", "")

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d, want %d", first.Code, http.StatusOK)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}
