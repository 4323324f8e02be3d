// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/moviecatalog/internal/auth"
	"github.com/hitoshi/moviecatalog/internal/model"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authStateContextKey はリクエストコンテキストに認証結果を格納するためのキー。
var authStateContextKey = contextKey("auth_state")

// authState は認証ゲートの判定結果。
// rejectedはトークンが提示されたが検証に失敗したことを表す。
type authState struct {
	identity *model.Identity
	rejected bool
}

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	VerifyClaims(token string) (*auth.Claims, error)
}

// publicPaths はトークンを解析せずに通過させるパス。
var publicPaths = map[string]struct{}{
	"/health":                    {},
	"/metrics":                   {},
	"/api/auth/test-token":       {},
	"/api/actors/search":         {},
	"/api/movies/search":         {},
	"/api/actors/stats/requests": {},
	"/api/movies/stats/requests": {},
}

// IsPublicPath はpathが認証不要のパスかを返す。
func IsPublicPath(path string) bool {
	_, ok := publicPaths[strings.TrimSuffix(path, "/")]
	return ok
}

// Authenticate はAuthorizationヘッダーのベアラートークンを検証し、認証主体を返す。
// ヘッダーがない、形式が不正、または検証に失敗した場合はfalseを返す。
func Authenticate(r *http.Request, verifier TokenVerifier) (*model.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, false
	}
	claims, err := verifier.VerifyClaims(token)
	if err != nil {
		return nil, false
	}
	return &model.Identity{Subject: claims.Subject, TokenID: claims.ID}, true
}

// NewAuthenticationMiddleware はベアラートークンから認証主体を解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// このミドルウェア自体はリクエストを拒否しない。検証に失敗した場合や公開パスの場合、
// 上流で設定された認証主体も含めてコンテキストから取り除く。
// 拒否はNewRequireAuthenticationMiddlewareが行う。
func NewAuthenticationMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := authState{}
			if IsPublicPath(r.URL.Path) {
				ctx := context.WithValue(r.Context(), authStateContextKey, state)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if _, present := bearerToken(r); present {
				identity, ok := Authenticate(r, verifier)
				if ok {
					state.identity = identity
					noteSubject(r.Context(), identity.Subject)
				} else {
					state.rejected = true
					slog.Debug("bearer token rejected",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
				}
			}

			ctx := context.WithValue(r.Context(), authStateContextKey, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAuthenticationMiddleware は認証主体のないリクエストに401を返すミドルウェアを返す。
// トークンが提示されたが無効だった場合はINVALID_TOKEN、提示されていない場合はUNAUTHENTICATEDを返す。
func NewRequireAuthenticationMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, _ := r.Context().Value(authStateContextKey).(authState)
			if state.identity == nil {
				if state.rejected {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証主体を取得する。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	state, ok := ctx.Value(authStateContextKey).(authState)
	if !ok || state.identity == nil {
		return nil, false
	}
	return state.identity, true
}

// ContextWithIdentity はコンテキストに認証主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, authStateContextKey, authState{identity: identity})
}

// subjectFromContext は認証済みの場合にsubjectを返す。未認証の場合は空文字を返す。
func subjectFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.Subject
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
