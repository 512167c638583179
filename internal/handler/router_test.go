package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/visit"
)

type stubSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (s *stubSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, nil
}

type stubHealthChecker struct {
	err error
}

func (s *stubHealthChecker) Ping() error { return s.err }

// newTestRouter はテスト用にフル構成のルーターを組み立てるヘルパー。
func newTestRouter(t *testing.T, finder middleware.SessionFinder, visitSvc VisitServiceInterface, health HealthChecker) http.Handler {
	t.Helper()
	if finder == nil {
		finder = &stubSessionFinder{}
	}
	if visitSvc == nil {
		visitSvc = &mockVisitService{}
	}
	return NewRouter(&RouterDeps{
		SessionFinder: finder,
		RateLimiter:   middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthService:   &mockAuthService{},
		AuthConfig: AuthHandlerConfig{
			BaseURL:       "http://localhost:8080",
			SessionMaxAge: 86400,
		},
		MarkerService: &mockMarkerService{},
		VisitService:  visitSvc,
		HealthChecker: health,
		Gatherer:      prometheus.NewRegistry(),
	})
}

func TestNewRouter_Home_Anonymous(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/auth/google/login") {
		t.Error("未認証のトップページにはログイン導線が含まれること")
	}
}

func TestNewRouter_Home_WithSessionCookie_ResolvesPrincipal(t *testing.T) {
	finder := &stubSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "session-abc" {
				t.Errorf("session id = %q, want %q", id, "session-abc")
			}
			return &model.Session{
				ID:        id,
				UserEmail: "owner@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	var gotPrincipal model.Principal
	visitSvc := &mockVisitService{
		homeFn: func(ctx context.Context, principal model.Principal) (*visit.MapView, error) {
			gotPrincipal = principal
			return &visit.MapView{
				User:    &model.User{Email: principal.Email},
				IsOwner: true,
			}, nil
		},
	}
	router := newTestRouter(t, finder, visitSvc, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
	if !gotPrincipal.IsAuthenticated() || gotPrincipal.Email != "owner@example.com" {
		t.Errorf("principal = %+v, セッションからemailが解決されること", gotPrincipal)
	}
}

func TestNewRouter_AddMarker_Anonymous_RedirectsHome(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	body, contentType := multipartForm(t, map[string]string{"city": "Paris"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/add-marker", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("POST /add-marker status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func TestNewRouter_Visit_RedirectsWhenTargetMissing(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/visit", strings.NewReader("target_email=nobody%40example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("POST /visit status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func TestNewRouter_AuthRoutes(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"ログイン開始はOAuth URLへリダイレクト", http.MethodGet, "/auth/google/login", http.StatusSeeOther},
		{"ログアウトはホームへリダイレクト", http.MethodPost, "/auth/logout", http.StatusSeeOther},
		{"未認証のmeは401", http.MethodGet, "/auth/me", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestNewRouter_Health(t *testing.T) {
	t.Run("DB疎通OKなら200", func(t *testing.T) {
		router := newTestRouter(t, nil, nil, &stubHealthChecker{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("DB疎通NGなら503", func(t *testing.T) {
		router := newTestRouter(t, nil, nil, &stubHealthChecker{err: context.DeadlineExceeded})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

func TestNewRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_UnknownRoute_Returns404(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("GET /no-such-page status = %d, want 404", w.Code)
	}
}

func TestSetupAuthRoutes_LoginEndpoint(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	router := SetupAuthRoutes(svc, AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		SessionMaxAge: 86400,
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("GET /auth/google/login status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func TestSetupAuthRoutes_CallbackEndpoint(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-123",
				UserEmail: "user@example.com",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
	}
	router := SetupAuthRoutes(svc, AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		SessionMaxAge: 86400,
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=test&state=valid", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "valid"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("GET /auth/google/callback status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}
