// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// FieldError は入力検証で検出された1フィールド分のエラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: auth, validation, actor, movie, system
	Action   string       // ユーザー向け対処方法
	Errors   []FieldError // 入力検証エラーの詳細（VALIDATION_FAILEDのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeBadCredentials     = "BAD_CREDENTIALS"
	ErrCodeActorNotFound      = "ACTOR_NOT_FOUND"
	ErrCodeMovieNotFound      = "MOVIE_NOT_FOUND"
	ErrCodeActorAlreadyExists = "ACTOR_ALREADY_EXISTS"
	ErrCodeMovieAlreadyExists = "MOVIE_ALREADY_EXISTS"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeNoResults          = "NO_RESULTS"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// HasCode はerrがAPIErrorであり、指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "新しいトークンを取得してください。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Authorization: Bearer ヘッダーに有効なトークンを指定してください。",
	}
}

// NewBadCredentialsError はテスト用トークン発行時の認証情報不一致エラーを生成する。
func NewBadCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredentials,
		Message:  "Invalid username or password",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewActorNotFoundError は俳優未検出エラーを生成する。
func NewActorNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeActorNotFound,
		Message:  fmt.Sprintf("Actor not found with id: %d", id),
		Category: "actor",
		Action:   "俳優IDを確認してください。",
	}
}

// NewMovieNotFoundError は映画未検出エラーを生成する。
func NewMovieNotFoundError(imdbID string) *APIError {
	return &APIError{
		Code:     ErrCodeMovieNotFound,
		Message:  fmt.Sprintf("Movie not found with imdbId: %s", imdbID),
		Category: "movie",
		Action:   "IMDB IDを確認してください。",
	}
}

// NewActorAlreadyExistsError は同名俳優の重複登録エラーを生成する。
func NewActorAlreadyExistsError(firstName, lastName string) *APIError {
	return &APIError{
		Code:     ErrCodeActorAlreadyExists,
		Message:  fmt.Sprintf("Actor already exists: %s %s", firstName, lastName),
		Category: "actor",
		Action:   "既存の俳優を更新するか、別の名前で登録してください。",
	}
}

// NewMovieAlreadyExistsError はIMDB IDの重複登録エラーを生成する。
func NewMovieAlreadyExistsError(imdbID string) *APIError {
	return &APIError{
		Code:     ErrCodeMovieAlreadyExists,
		Message:  fmt.Sprintf("Movie already exists with imdbId: %s", imdbID),
		Category: "movie",
		Action:   "既存の映画を更新してください。",
	}
}

// NewInvalidArgumentError は不正な引数エラーを生成する。
func NewInvalidArgumentError(field, message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  message,
		Category: "validation",
		Action:   "リクエストパラメータを確認してください。",
		Errors:   []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(errs []FieldError) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーを確認して再送信してください。",
		Errors:   errs,
	}
}

// NewNoResultsError は該当データが0件であることを示すソフトエラーを生成する。
// HTTP層ではエラーではなく200として扱う。
func NewNoResultsError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeNoResults,
		Message:  fmt.Sprintf("No %s found", kind),
		Category: kind,
		Action:   "検索条件やページ番号を変更してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
