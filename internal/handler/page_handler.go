package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pinmap/internal/marker"
	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/visit"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadMemory はmultipartフォームのメモリ上限。超過分はテンポラリファイルに退避される。
const maxUploadMemory = 10 << 20 // 10MB

// MarkerServiceInterface はページハンドラーが必要とするマーカー登録サービス。
type MarkerServiceInterface interface {
	AddMarker(ctx context.Context, principal model.Principal, input marker.AddMarkerInput) (marker.Outcome, error)
}

// VisitServiceInterface はページハンドラーが必要とする地図表示・来訪記録サービス。
type VisitServiceInterface interface {
	Home(ctx context.Context, principal model.Principal) (*visit.MapView, error)
	Visit(ctx context.Context, principal model.Principal, targetEmail string) (*visit.MapView, error)
}

// pageData は地図ページテンプレートの描画データ。
type pageData struct {
	Authenticated bool
	User          *model.User
	IsOwner       bool
	VisitorMode   bool
}

// PageHandler は地図ページ関連のHTTPハンドラー。
// 利用者にエラーページを見せない方針のため、処理に失敗した場合も
// ホームへの303リダイレクトで復帰させる。
type PageHandler struct {
	markerService MarkerServiceInterface
	visitService  VisitServiceInterface
	tmpl          *template.Template
}

// NewPageHandler はPageHandlerを生成する。
// テンプレートのパースに失敗した場合はpanicする（埋め込みテンプレートの
// 破損はビルド時の問題であり、起動を継続できない）。
func NewPageHandler(markerService MarkerServiceInterface, visitService VisitServiceInterface) *PageHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	return &PageHandler{
		markerService: markerService,
		visitService:  visitService,
		tmpl:          tmpl,
	}
}

// Home は自分の地図ページを表示する。
// GET /
// 未認証の場合はログイン導線のみのページを表示する。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	view, err := h.visitService.Home(r.Context(), principal)
	if err != nil {
		slog.Error("failed to build home view",
			slog.String("email", principal.Email),
			slog.String("error", err.Error()),
		)
		// 失敗時もエラーページは出さず、ログイン導線のみのページを表示する
		h.render(w, pageData{Authenticated: false})
		return
	}

	if view == nil {
		// 未認証
		h.render(w, pageData{Authenticated: false})
		return
	}

	h.render(w, pageData{
		Authenticated: true,
		User:          view.User,
		IsOwner:       view.IsOwner,
		VisitorMode:   view.VisitorMode,
	})
}

// AddMarker はマーカー登録フォームを処理する。
// POST /add-marker
// 結果にかかわらずホームへ303でリダイレクトする。座標が解決できなかった
// 場合はマーカーが追加されないまま地図に戻る。
func (h *PageHandler) AddMarker(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		slog.Warn("failed to parse add-marker form",
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	input := marker.AddMarkerInput{
		City:    r.FormValue("city"),
		Country: r.FormValue("country"),
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		input.Image = file
		input.Filename = header.Filename
	}

	if _, err := h.markerService.AddMarker(r.Context(), principal, input); err != nil {
		slog.Error("failed to add marker",
			slog.String("email", principal.Email),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// VisitMap は他のユーザーの地図を表示し、来訪を記録する。
// POST /visit
// 対象ユーザーが存在しない場合はホームへ303でリダイレクトする。
func (h *PageHandler) VisitMap(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	targetEmail := r.FormValue("target_email")
	if targetEmail == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	view, err := h.visitService.Visit(r.Context(), principal, targetEmail)
	if err != nil {
		slog.Error("failed to build visit view",
			slog.String("target", targetEmail),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if view == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, pageData{
		Authenticated: principal.IsAuthenticated(),
		User:          view.User,
		IsOwner:       view.IsOwner,
		VisitorMode:   view.VisitorMode,
	})
}

// render はindexテンプレートを描画する。
func (h *PageHandler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("failed to render template", slog.String("error", err.Error()))
	}
}
