package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/moviecatalog/internal/middleware"
	"github.com/hitoshi/moviecatalog/internal/model"
)

// maxRequestBodySize はリクエストボディの上限（1MiB）。
const maxRequestBodySize = 1 << 20

// readCacheControl は参照系エンドポイントに付与するCache-Controlヘッダー値。
const readCacheControl = "max-age=1800"

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeCacheableJSON はCache-Control付きで200のJSONレスポンスを書き込む。
func writeCacheableJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Cache-Control", readCacheControl)
	writeJSON(w, http.StatusOK, v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSONBody はリクエストボディをJSONとしてdstに読み込む。
// 未知のフィールドは無視する。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// newInvalidBodyError はリクエストボディの解析失敗エラーを生成する。
func newInvalidBodyError() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeInvalidArgument,
		Message:  "Malformed JSON request body",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// NO_RESULTSはエラーではなく、200でボディに理由を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidToken, model.ErrCodeUnauthenticated, model.ErrCodeBadCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeActorNotFound, model.ErrCodeMovieNotFound:
		return http.StatusNotFound
	case model.ErrCodeActorAlreadyExists, model.ErrCodeMovieAlreadyExists:
		return http.StatusConflict
	case model.ErrCodeInvalidArgument, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeNoResults:
		return http.StatusOK
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
