package model

// Principal はリクエストに紐づく認証主体を表す。
// ゼロ値は匿名を意味し、Emailが設定されている場合のみ認証済みとなる。
// セッションミドルウェアが解決し、各ワークフローへ明示的に渡される。
type Principal struct {
	Email string
}

// Anonymous は未認証の主体を返す。
func Anonymous() Principal {
	return Principal{}
}

// Authenticated は指定emailの認証済み主体を返す。
func Authenticated(email string) Principal {
	return Principal{Email: email}
}

// IsAuthenticated は認証済みかを返す。
func (p Principal) IsAuthenticated() bool {
	return p.Email != ""
}
