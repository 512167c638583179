// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザーが入力した地名テキストをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 地名はプレーンテキストとして扱うため、bluemondayの厳格ポリシーで
// HTMLタグを一切許可しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
// 都市名・国名のフォーム入力を保存・表示する前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去し、前後の空白を削除して返す。
	// scriptタグ等の危険な要素はタグごと中身も除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// bluemonday.StrictPolicyは許可タグを持たないため、全てのHTMLタグが除去され
// テキストノードのみが残る。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを除去し、前後の空白を削除して返す。
// bluemondayはテキストをHTMLエスケープして返すため、プレーンテキストとして
// 扱えるようにエスケープを解除する。エスケープ解除後もタグは既に除去済みで安全。
func (s *textSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
