// Package media はCloudinaryへの画像アップロード機能を提供する。
// 署名付きアップロードAPIを使用し、アップロード結果の公開URLを返す。
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Uploader は画像アップロード機能のインターフェース。
type Uploader interface {
	// Upload は画像をアップロードし、公開URLを返す。
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
}

// Config はCloudinaryアップローダーの設定。
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// MaxSize はアップロードを許可する最大バイト数。
	MaxSize int64
	// Endpoint はテスト用にアップロード先を差し替えるためのURL。
	// 空の場合はCloudinaryの本番エンドポイントを使用する。
	Endpoint string
}

// CloudinaryUploader はCloudinaryの署名付きアップロードAPIのクライアント。
type CloudinaryUploader struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     Config
	// now はテスト用に差し替え可能な現在時刻取得関数。署名のtimestampに使用する。
	now func() time.Time
}

// NewCloudinaryUploader はCloudinaryUploaderの新しいインスタンスを生成する。
func NewCloudinaryUploader(httpClient *http.Client, logger *slog.Logger, config Config) *CloudinaryUploader {
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", config.CloudName)
	}
	return &CloudinaryUploader{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// uploadResponse はCloudinaryアップロードAPIのレスポンス。
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload は画像をCloudinaryへアップロードし、HTTPSの公開URLを返す。
// サイズ上限を超えた場合、またはAPIがエラーを返した場合はエラーを返す。
func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	timestamp := strconv.FormatInt(u.now().Unix(), 10)

	params := map[string]string{
		"timestamp": timestamp,
	}
	signature := signParams(params, u.config.APISecret)

	// multipartボディ構築
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("フォームフィールドの書き込みに失敗しました: %w", err)
		}
	}
	if err := writer.WriteField("api_key", u.config.APIKey); err != nil {
		return "", fmt.Errorf("フォームフィールドの書き込みに失敗しました: %w", err)
	}
	if err := writer.WriteField("signature", signature); err != nil {
		return "", fmt.Errorf("フォームフィールドの書き込みに失敗しました: %w", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ファイルパートの作成に失敗しました: %w", err)
	}

	// サイズ上限+1バイトまで読み、超過を検出する
	n, err := io.Copy(part, io.LimitReader(r, u.config.MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("画像データの読み取りに失敗しました: %w", err)
	}
	if n > u.config.MaxSize {
		return "", fmt.Errorf("画像サイズが上限 %d バイトを超えています", u.config.MaxSize)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("multipartボディの終端書き込みに失敗しました: %w", err)
	}

	// HTTPリクエスト作成
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// HTTPリクエスト実行
	resp, err := u.httpClient.Do(req)
	if err != nil {
		u.logger.Error("画像アップロードAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("filename", filename),
		)
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		u.logger.Error("画像アップロードAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("filename", filename),
		)
		return "", fmt.Errorf("画像アップロードAPIがステータス %d を返しました", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("レスポンスにsecure_urlが含まれていません")
	}

	return result.SecureURL, nil
}

// signParams はCloudinaryの署名規約に従いパラメータに署名する。
// パラメータをキーの昇順で "key=value" 連結し、末尾にAPIシークレットを
// 付加した文字列のSHA-1ハッシュを16進文字列で返す。
func signParams(params map[string]string, apiSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	payload := strings.Join(pairs, "&") + apiSecret
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// compile-time interface check
var _ Uploader = (*CloudinaryUploader)(nil)
