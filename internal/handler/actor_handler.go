package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/security"
)

// ActorServiceInterface は俳優ハンドラーが必要とするサービスインターフェース。
type ActorServiceInterface interface {
	ListAll(ctx context.Context) ([]*model.Actor, error)
	ListPaged(ctx context.Context, req model.PageRequest) (*model.Page[*model.Actor], error)
	Get(ctx context.Context, id int64) (*model.Actor, error)
	Create(ctx context.Context, in *model.Actor) (*model.Actor, error)
	Update(ctx context.Context, id int64, in *model.Actor) (*model.Actor, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, term string, req model.PageRequest) (*model.Page[*model.Actor], error)
	RequestCount() uint64
}

// RequestValidator はリクエストボディの検証に必要なインターフェース。
// validation.Validatorが実装する。
type RequestValidator interface {
	Validate(s any) error
}

// ActorHandler は俳優管理のHTTPハンドラー。
type ActorHandler struct {
	service     ActorServiceInterface
	validator   RequestValidator
	sanitizer   security.TextSanitizer
	pageMaxSize int
}

// NewActorHandler はActorHandlerを生成する。
func NewActorHandler(service ActorServiceInterface, validator RequestValidator, sanitizer security.TextSanitizer, pageMaxSize int) *ActorHandler {
	return &ActorHandler{
		service:     service,
		validator:   validator,
		sanitizer:   sanitizer,
		pageMaxSize: pageMaxSize,
	}
}

// ListAll は全俳優を返す。
// GET /api/actors/all
func (h *ActorHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actors, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		resp = append(resp, toActorResponse(a))
	}
	writeCacheableJSON(w, resp)
}

// ListPaged は俳優一覧をページ単位で返す。
// GET /api/actors/paged?page=0&size=20
func (h *ActorHandler) ListPaged(w http.ResponseWriter, r *http.Request) {
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
	writeCacheableJSON(w, toPageResponse(page, toActorResponse))
}

// Get は俳優の詳細を返す。
// GET /api/actors/{id}
func (h *ActorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseActorID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	actor, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeCacheableJSON(w, toActorResponse(actor))
}

// Create は俳優を登録する。
// POST /api/actors
func (h *ActorHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.readActor(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActorResponse(created))
}

// Update は俳優を更新する。
// PUT /api/actors/{id}
func (h *ActorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseActorID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	in, err := h.readActor(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActorResponse(updated))
}

// Delete は俳優を削除する。
// DELETE /api/actors/{id}
func (h *ActorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseActorID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search は名または姓で俳優を検索する。
// GET /api/actors/search?searchTerm=...&page=0&size=20
func (h *ActorHandler) Search(w http.ResponseWriter, r *http.Request) {
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
	writeCacheableJSON(w, toPageResponse(page, toActorResponse))
}

// RequestCount は起動後の操作回数を数値で返す。
// GET /api/actors/stats/requests
func (h *ActorHandler) RequestCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.RequestCount())
}

// readActor はリクエストボディを読み込み、無害化と検証を行ってmodel.Actorを返す。
func (h *ActorHandler) readActor(w http.ResponseWriter, r *http.Request) (*model.Actor, error) {
	var req actorRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return nil, newInvalidBodyError()
	}

	req.FirstName = h.sanitizer.Sanitize(req.FirstName)
	req.LastName = h.sanitizer.Sanitize(req.LastName)

	if err := h.validator.Validate(&req); err != nil {
		return nil, err
	}
	return req.toModel()
}

// parseActorID はパスパラメータidを正の整数として解析する。
func parseActorID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidArgumentError("id", "Actor id must be a positive integer")
	}
	return id, nil
}
