package model

// Identity はベアラートークンで認証されたリクエストの主体。
// 権限の概念はなく、存在すれば認証済みとして扱う。
type Identity struct {
	Subject string
	TokenID string
}
