// Package visit は地図表示と来訪記録のビジネスロジックを提供する。
package visit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/pinmap/internal/metrics"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/repository"
)

// hiddenOAuthToken は来訪記録に保存するトークンのプレースホルダー。
// 実トークンは保存しない。
const hiddenOAuthToken = "google_oauth_token_hidden"

// MapView は地図ページの描画に必要なデータ。
type MapView struct {
	User *model.User
	// IsOwner は表示中の地図が閲覧者自身のものかを示す。
	IsOwner bool
	// VisitorMode は他人の地図を閲覧中であることを示す。
	VisitorMode bool
}

// Service は地図表示と来訪記録のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	// now はテスト用に差し替え可能な現在時刻取得関数。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, collector metrics.MetricsCollector, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

// Home は閲覧者自身の地図ビューを返す。
// 未認証の場合は (nil, nil) を返し、呼び出し元がログインページを表示する。
// 受け取った来訪記録は新しい順に並べ替えて返す。
func (s *Service) Home(ctx context.Context, principal model.Principal) (*MapView, error) {
	if !principal.IsAuthenticated() {
		return nil, nil
	}

	user, err := s.userRepo.FindByEmail(ctx, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		// ログイン済みだがまだドキュメントがない場合は空の地図を表示する
		user = &model.User{Email: principal.Email}
	}

	reverseVisits(user.Visits)

	return &MapView{User: user, IsOwner: true, VisitorMode: false}, nil
}

// Visit は指定ユーザーの地図ビューを返し、来訪を記録する。
//
// 対象ユーザーが存在しない場合は (nil, nil) を返す。
// 来訪記録は閲覧者が認証済みかつ対象が本人でない場合のみ追記する。
// 匿名閲覧と自己閲覧は記録しない。追記の失敗はログに残すのみで、
// 地図表示は継続する。
func (s *Service) Visit(ctx context.Context, principal model.Principal, targetEmail string) (*MapView, error) {
	target, err := s.userRepo.FindByEmail(ctx, targetEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load target user: %w", err)
	}
	if target == nil {
		return nil, nil
	}

	if principal.IsAuthenticated() && principal.Email != targetEmail {
		record := model.Visit{
			VisitorEmail: principal.Email,
			Timestamp:    s.now().Format(model.VisitTimestampFormat),
			OAuthToken:   hiddenOAuthToken,
		}
		if err := s.userRepo.AppendVisit(ctx, targetEmail, record); err != nil {
			s.logger.Error("failed to record visit",
				slog.String("visitor", principal.Email),
				slog.String("target", targetEmail),
				slog.String("error", err.Error()),
			)
		} else {
			s.metrics.RecordVisitRecorded()
			s.logger.Info("visit recorded",
				slog.String("visitor", principal.Email),
				slog.String("target", targetEmail),
			)
		}
	}

	return &MapView{User: target, IsOwner: false, VisitorMode: true}, nil
}

// reverseVisits は来訪記録を新しい順に並べ替える。
// 永続化層は追記順（古い順）で保持するため、表示時に反転する。
func reverseVisits(visits []model.Visit) {
	for i, j := 0, len(visits)-1; i < j; i, j = i+1, j-1 {
		visits[i], visits[j] = visits[j], visits[i]
	}
}
