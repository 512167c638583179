// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/pinmap/internal/model"
)

// UserRepository はユーザードキュメントの永続化インターフェース。
// 1ユーザー = 1ドキュメント（emailキー）で、markers/visitsは追記専用の配列として扱う。
type UserRepository interface {
	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithIdentity はユーザードキュメントとidentityを同一トランザクションで作成する。
	// 初回OAuthログイン時の自動プロビジョニングで使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// AppendMarker は指定ユーザーのmarkers配列へマーカーを1件追記する。
	// ドキュメントが存在しない場合は作成した上で追記する（upsert-on-append）。
	// 追記は単一ステートメントで実行され、ストアの原子性に依存する。
	AppendMarker(ctx context.Context, email string, marker model.Marker) error

	// AppendVisit は指定ユーザーのvisits配列へ来訪記録を1件追記する。
	// AppendMarkerと同じupsert-on-append・原子性の規約に従う。
	AppendVisit(ctx context.Context, email string, visit model.Visit) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
