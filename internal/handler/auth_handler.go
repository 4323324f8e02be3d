// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/moviecatalog/internal/model"
)

// DemoSubject はデモ用トークンの主体。
const DemoSubject = "test-user"

// TokenIssuer はトークン発行に必要なインターフェース。
// auth.TokenServiceが実装する。
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// CredentialVerifier はユーザー名とパスワードの照合に必要なインターフェース。
// auth.CredentialCheckerが実装する。
type CredentialVerifier interface {
	Check(username, password string) bool
}

// AuthHandler はテスト用トークン発行のHTTPハンドラー。
type AuthHandler struct {
	issuer      TokenIssuer
	credentials CredentialVerifier
}

// NewAuthHandler はAuthHandlerを生成する。
// credentialsがnilの場合、認証情報によるトークン発行は常に失敗する。
func NewAuthHandler(issuer TokenIssuer, credentials CredentialVerifier) *AuthHandler {
	return &AuthHandler{
		issuer:      issuer,
		credentials: credentials,
	}
}

// tokenRequest はトークン発行リクエストのボディ。
type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DemoToken は固定の主体でトークンを発行し、トークン文字列をそのまま返す。
// GET /api/auth/test-token
func (h *AuthHandler) DemoToken(w http.ResponseWriter, r *http.Request) {
	h.writeToken(w, r, DemoSubject)
}

// IssueToken はユーザー名とパスワードを照合し、そのユーザー名を主体とするトークンを返す。
// POST /api/auth/test-token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidBodyError())
		return
	}

	if h.credentials == nil || !h.credentials.Check(req.Username, req.Password) {
		slog.Warn("test token credentials rejected", slog.String("username", req.Username))
		handleServiceError(w, r, model.NewBadCredentialsError())
		return
	}

	h.writeToken(w, r, req.Username)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, subject string) {
	token, err := h.issuer.Issue(subject)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token))
}
