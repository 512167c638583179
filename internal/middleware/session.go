// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pinmap/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewPrincipalMiddleware はHTTP Only Cookieからセッションを読み取り、
// リクエストのプリンシパルを解決するミドルウェアを返す。
//
// Cookie欠落、セッション不在、期限切れ、検索エラーのいずれの場合も
// リクエストを拒否せず、匿名プリンシパルとして後続処理に渡す。
// 認証の要否はハンドラーおよびサービス層が判断する。
func NewPrincipalMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := model.Anonymous()

			cookie, err := r.Cookie(sessionCookieName)
			if err == nil && cookie.Value != "" {
				session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
				if err != nil {
					// 検索エラーは匿名として続行する（表示を妨げない）
					slog.Error("failed to find session",
						slog.String("error", err.Error()),
					)
				} else if session != nil {
					principal = model.Authenticated(session.UserEmail)
				}
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// ミドルウェアを通過していないコンテキストでは匿名を返す。
func PrincipalFromContext(ctx context.Context) model.Principal {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok {
		return model.Anonymous()
	}
	return principal
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
