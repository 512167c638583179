package geocode

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	c := NewClient(http.DefaultClient, logger, "")
	if c == nil {
		t.Fatal("NewClient は nil を返してはならない")
	}
	if c.endpoint != defaultEndpoint {
		t.Errorf("endpoint = %s, want %s", c.endpoint, defaultEndpoint)
	}
}

func TestClient_Geocode_ReturnsFirstCandidate(t *testing.T) {
	// テスト用HTTPサーバー: 複数候補を返す
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("city"); got != "Paris" {
			t.Errorf("cityパラメータ = %s, want Paris", got)
		}
		if got := r.URL.Query().Get("country"); got != "France" {
			t.Errorf("countryパラメータ = %s, want France", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("formatパラメータ = %s, want json", got)
		}
		if got := r.Header.Get("User-Agent"); got != "PinMap/1.0" {
			t.Errorf("User-Agent = %s, want PinMap/1.0", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522"},{"lat":"33.66","lon":"-95.55"}]`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	coords, err := c.Geocode(context.Background(), "Paris", "France")
	if err != nil {
		t.Fatalf("Geocode がエラーを返した: %v", err)
	}
	if coords == nil {
		t.Fatal("座標が返されなかった")
	}
	if coords.Lat != "48.8566" || coords.Lon != "2.3522" {
		t.Errorf("座標 = (%s, %s), want (48.8566, 2.3522)", coords.Lat, coords.Lon)
	}
}

func TestClient_Geocode_NoCandidates_ReturnsNil(t *testing.T) {
	// 候補0件は空のJSON配列が返る
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	coords, err := c.Geocode(context.Background(), "Nowhere", "Atlantis")
	if err != nil {
		t.Fatalf("候補0件でエラーを返してはならない: %v", err)
	}
	if coords != nil {
		t.Errorf("候補0件では nil を返すべき: got %+v", coords)
	}
}

func TestClient_Geocode_ServerError_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	_, err := c.Geocode(context.Background(), "Paris", "France")
	if err == nil {
		t.Fatal("サーバーエラー時はエラーを返すべき")
	}
}

func TestClient_Geocode_InvalidJSON_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	_, err := c.Geocode(context.Background(), "Paris", "France")
	if err == nil {
		t.Fatal("不正なJSONに対してエラーを返すべき")
	}
}

func TestClient_Geocode_CancelledContext_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), "https://example.com/search")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Geocode(ctx, "Paris", "France")
	if err == nil {
		t.Fatal("キャンセル済みコンテキストではエラーを返すべき")
	}
}
