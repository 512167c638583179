// Package geocode はNominatimジオコーディングAPIとの連携機能を提供する。
// 都市名・国名から緯度経度を解決する。
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/hitoshi/pinmap/internal/model"
)

const (
	// defaultEndpoint はNominatim検索APIのエンドポイント。
	defaultEndpoint = "https://nominatim.openstreetmap.org/search"
	// userAgent はNominatim利用規約で必須の識別用User-Agent。
	userAgent = "PinMap/1.0"
)

// Geocoder は地名から座標を解決するインターフェース。
type Geocoder interface {
	// Geocode は都市名・国名から座標を解決する。
	// 候補が見つからない場合は (nil, nil) を返す。
	Geocode(ctx context.Context, city, country string) (*model.Coordinates, error)
}

// Client はNominatim APIのクライアント。
// Nominatimの利用規約（1リクエスト/秒）に従い、レートリミッターで
// リクエスト間隔を制御する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
// endpointが空の場合はNominatimの公開エンドポイントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		endpoint:   endpoint,
	}
}

// nominatimResult はNominatim検索APIのレスポンス1件。
// latとlonは文字列として返される。
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode は都市名・国名から座標を解決する。
// 複数候補が返された場合は先頭の候補を採用する。
// 候補が0件の場合は (nil, nil) を返す（エラーではない）。
func (c *Client) Geocode(ctx context.Context, city, country string) (*model.Coordinates, error) {
	// Nominatimのレート制限に従って待機
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミッターの待機に失敗しました: %w", err)
	}

	// リクエストURL構築
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("city", city)
	q.Set("country", country)
	q.Set("format", "json")
	reqURL.RawQuery = q.Encode()

	// HTTPリクエスト作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	// HTTPリクエスト実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ジオコーディングAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("city", city),
			slog.String("country", country),
		)
		return nil, err
	}
	defer resp.Body.Close()

	// HTTPステータスチェック
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ジオコーディングAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("city", city),
			slog.String("country", country),
		)
		return nil, fmt.Errorf("ジオコーディングAPIがステータス %d を返しました", resp.StatusCode)
	}

	// レスポンスボディ読み取り
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	// JSONデコード
	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		c.logger.Error("ジオコーディングAPIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	// 候補なしはエラーではなく「座標不明」として扱う
	if len(results) == 0 {
		c.logger.Info("ジオコーディングの候補が見つかりませんでした",
			slog.String("city", city),
			slog.String("country", country),
		)
		return nil, nil
	}

	first := results[0]
	if first.Lat == "" || first.Lon == "" {
		return nil, nil
	}

	return &model.Coordinates{Lat: first.Lat, Lon: first.Lon}, nil
}

// compile-time interface check
var _ Geocoder = (*Client)(nil)
