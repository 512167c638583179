// Package model はドメインモデルを定義する。
package model

import "time"

// User は1ユーザーの訪問マップドキュメントを表す。
// emailをキーとする1ドキュメントにマーカーと来訪記録を埋め込んで保持する。
type User struct {
	Email     string
	Name      string
	Markers   []Marker
	Visits    []Visit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Marker はユーザーがマップにピン留めした1地点を表す。
// 緯度経度はジオコーダーが返した文字列表現をそのまま保持する。
type Marker struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Lat      string `json:"lat"`
	Lon      string `json:"lon"`
	ImageURL string `json:"image_url"`
}

// Visit は他ユーザーのマップを閲覧した記録を表す。
// Timestampは秒精度の "YYYY-MM-DD HH:MM:SS" 形式で保持する。
// OAuthTokenは将来の連携を見据えたプレースホルダーで、実トークンは保存しない。
type Visit struct {
	VisitorEmail string `json:"visitor_email"`
	Timestamp    string `json:"timestamp"`
	OAuthToken   string `json:"oauth_token"`
}

// VisitTimestampFormat はVisit.Timestampのフォーマット。
const VisitTimestampFormat = "2006-01-02 15:04:05"

// Coordinates はジオコーディング結果の緯度経度を表す。
type Coordinates struct {
	Lat string
	Lon string
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserEmail      string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserEmail string
	ExpiresAt time.Time
	CreatedAt time.Time
}
