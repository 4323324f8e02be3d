package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/moviecatalog/internal/model"
)

const (
	defaultPageNumber = 0
	defaultPageSize   = 20
)

// parsePageRequest はクエリパラメータpageとsizeからページ要求を組み立てる。
// 未指定の場合はpage=0、size=20。sizeはmaxSizeで切り詰める。
// 範囲の検証はサービス層で行う。
func parsePageRequest(r *http.Request, maxSize int) (model.PageRequest, error) {
	q := r.URL.Query()

	number, err := intParam(q.Get("page"), defaultPageNumber)
	if err != nil {
		return model.PageRequest{}, model.NewInvalidArgumentError("page", "Page index must be an integer")
	}
	size, err := intParam(q.Get("size"), defaultPageSize)
	if err != nil {
		return model.PageRequest{}, model.NewInvalidArgumentError("size", "Page size must be an integer")
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}

	return model.PageRequest{Number: number, Size: size}, nil
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// pageResponse はページングされた一覧のAPIレスポンス。
type pageResponse[T any] struct {
	Content          []T   `json:"content"`
	Number           int   `json:"number"`
	Size             int   `json:"size"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// toPageResponse はmodel.Pageを要素ごとに変換したレスポンスを返す。
func toPageResponse[E, T any](page *model.Page[E], convert func(E) T) pageResponse[T] {
	content := make([]T, 0, len(page.Content))
	for _, e := range page.Content {
		content = append(content, convert(e))
	}
	return pageResponse[T]{
		Content:          content,
		Number:           page.Number,
		Size:             page.Size,
		TotalElements:    page.TotalElements,
		TotalPages:       page.TotalPages(),
		NumberOfElements: len(content),
		First:            page.IsFirst(),
		Last:             page.IsLast(),
		Empty:            page.IsEmpty(),
	}
}
