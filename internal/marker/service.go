// Package marker はマーカー登録のビジネスロジックを提供する。
// 地名のサニタイズ、画像アップロード、ジオコーディング、永続化を
// 一連のフローとして実行する。
package marker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/pinmap/internal/geocode"
	"github.com/hitoshi/pinmap/internal/media"
	"github.com/hitoshi/pinmap/internal/metrics"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/repository"
	"github.com/hitoshi/pinmap/internal/security"
)

// Outcome はマーカー登録処理の結果を表す。
type Outcome int

const (
	// OutcomeUnauthenticated は未認証のため処理を行わなかったことを示す。
	OutcomeUnauthenticated Outcome = iota
	// OutcomeCommitted はマーカーが永続化されたことを示す。
	OutcomeCommitted
	// OutcomeDropped は座標が解決できず、マーカーが保存されなかったことを示す。
	OutcomeDropped
)

// AddMarkerInput はマーカー登録の入力。
type AddMarkerInput struct {
	City    string
	Country string
	// Image は添付画像のリーダー。画像なしの場合はnil。
	Image    io.Reader
	Filename string
}

// Service はマーカー登録のビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	geocoder  geocode.Geocoder
	uploader  media.Uploader
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	geocoder geocode.Geocoder,
	uploader media.Uploader,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		geocoder:  geocoder,
		uploader:  uploader,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// AddMarker はマーカー登録フローを実行する。
//
// フローは以下の順で進み、画像アップロードとジオコーディングの失敗は
// エラーとして伝播させない（フェイルソフト）:
//  1. 認証チェック。未認証の場合は何もせずOutcomeUnauthenticatedを返す。
//  2. 地名のサニタイズ。サニタイズ後に都市名が空ならOutcomeDroppedを返す。
//  3. 画像アップロード。失敗時はimage_urlを空文字列として続行する。
//  4. ジオコーディング。緯度・経度の両方が解決できた場合のみ永続化する。
//
// 永続化自体の失敗のみエラーとして返す。
func (s *Service) AddMarker(ctx context.Context, principal model.Principal, input AddMarkerInput) (Outcome, error) {
	if !principal.IsAuthenticated() {
		return OutcomeUnauthenticated, nil
	}

	city := s.sanitizer.Sanitize(input.City)
	country := s.sanitizer.Sanitize(input.Country)
	if city == "" || country == "" {
		s.logger.Warn("marker dropped: empty place name after sanitization",
			slog.String("email", principal.Email),
			slog.Bool("empty_city", city == ""),
			slog.Bool("empty_country", country == ""),
		)
		s.metrics.RecordMarkerDropped()
		return OutcomeDropped, nil
	}

	// 画像アップロード（フェイルソフト）
	// ファイル未選択時にブラウザが空のファイルパートを送るため、filenameも確認する
	imageURL := ""
	if input.Image != nil && input.Filename != "" {
		uploaded, err := s.uploader.Upload(ctx, input.Image, input.Filename)
		if err != nil {
			s.logger.Warn("image upload failed, continuing without image",
				slog.String("email", principal.Email),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordUploadFailure()
		} else {
			imageURL = uploaded
		}
	}

	// ジオコーディング（フェイルソフト）
	start := time.Now()
	coords, err := s.geocoder.Geocode(ctx, city, country)
	s.metrics.RecordGeocodeLatency(time.Since(start))
	if err != nil {
		s.logger.Warn("geocoding failed, marker dropped",
			slog.String("email", principal.Email),
			slog.String("city", city),
			slog.String("country", country),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordGeocodeFailure()
		s.metrics.RecordMarkerDropped()
		return OutcomeDropped, nil
	}

	// 緯度・経度の両方が揃わない限り保存しない
	if coords == nil || coords.Lat == "" || coords.Lon == "" {
		s.logger.Info("marker dropped: coordinates not resolved",
			slog.String("email", principal.Email),
			slog.String("city", city),
			slog.String("country", country),
		)
		s.metrics.RecordGeocodeFailure()
		s.metrics.RecordMarkerDropped()
		return OutcomeDropped, nil
	}
	s.metrics.RecordGeocodeSuccess()

	m := model.Marker{
		City:     city,
		Country:  country,
		Lat:      coords.Lat,
		Lon:      coords.Lon,
		ImageURL: imageURL,
	}

	if err := s.userRepo.AppendMarker(ctx, principal.Email, m); err != nil {
		return OutcomeDropped, fmt.Errorf("failed to persist marker: %w", err)
	}

	s.metrics.RecordMarkerCreated()
	s.logger.Info("marker created",
		slog.String("email", principal.Email),
		slog.String("city", city),
		slog.String("country", country),
		slog.Bool("has_image", imageURL != ""),
	)

	return OutcomeCommitted, nil
}
