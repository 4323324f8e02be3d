package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/security"
)

// MovieServiceInterface は映画ハンドラーが必要とするサービスインターフェース。
type MovieServiceInterface interface {
	ListAll(ctx context.Context) ([]*model.Movie, error)
	ListPaged(ctx context.Context, req model.PageRequest) (*model.Page[*model.Movie], error)
	Get(ctx context.Context, imdbID string) (*model.Movie, error)
	Create(ctx context.Context, in *model.Movie) (*model.Movie, error)
	Update(ctx context.Context, imdbID string, in *model.Movie) (*model.Movie, error)
	Delete(ctx context.Context, imdbID string) error
	Search(ctx context.Context, term string, req model.PageRequest) (*model.Page[*model.Movie], error)
	RequestCount() uint64
}

// MovieHandler は映画管理のHTTPハンドラー。
type MovieHandler struct {
	service     MovieServiceInterface
	validator   RequestValidator
	sanitizer   security.TextSanitizer
	pageMaxSize int
}

// NewMovieHandler はMovieHandlerを生成する。
func NewMovieHandler(service MovieServiceInterface, validator RequestValidator, sanitizer security.TextSanitizer, pageMaxSize int) *MovieHandler {
	return &MovieHandler{
		service:     service,
		validator:   validator,
		sanitizer:   sanitizer,
		pageMaxSize: pageMaxSize,
	}
}

// ListAll は全映画を返す。
// GET /api/movies/all
func (h *MovieHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	movies, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		resp = append(resp, toMovieResponse(m))
	}
	writeCacheableJSON(w, resp)
}

// ListPaged は映画一覧をページ単位で返す。
// GET /api/movies/paged?page=0&size=20
func (h *MovieHandler) ListPaged(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r, h.pageMaxSize)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	page, err := h.service.ListPaged(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeCacheableJSON(w, toPageResponse(page, toMovieResponse))
}

// Get は映画の詳細を返す。
// GET /api/movies/{id}
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	movie, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeCacheableJSON(w, toMovieResponse(movie))
}

// Create は映画を登録する。
// POST /api/movies
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.readMovie(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovieResponse(created))
}

// Update は映画を更新する。IMDB IDはパスの値が使われる。
// PUT /api/movies/{id}
func (h *MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := h.readMovie(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovieResponse(updated))
}

// Delete は映画を削除する。
// DELETE /api/movies/{id}
func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search はタイトルまたは説明で映画を検索する。
// GET /api/movies/search?searchTerm=...&page=0&size=20
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r, h.pageMaxSize)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	page, err := h.service.Search(r.Context(), r.URL.Query().Get("searchTerm"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeCacheableJSON(w, toPageResponse(page, toMovieResponse))
}

// RequestCount は起動後の操作回数を数値で返す。
// GET /api/movies/stats/requests
func (h *MovieHandler) RequestCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.RequestCount())
}

// readMovie はリクエストボディを読み込み、無害化と検証を行ってmodel.Movieを返す。
func (h *MovieHandler) readMovie(w http.ResponseWriter, r *http.Request) (*model.Movie, error) {
	var req movieRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return nil, newInvalidBodyError()
	}

	req.Title = h.sanitizer.Sanitize(req.Title)
	req.Description = h.sanitizer.Sanitize(req.Description)

	if err := h.validator.Validate(&req); err != nil {
		return nil, err
	}
	return req.toModel()
}
