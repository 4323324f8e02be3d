package model

import "math"

// PageRequest は0始まりのページ番号とページサイズ。
type PageRequest struct {
	Number int
	Size   int
}

// Check はページ番号が0以上、サイズが1以上であり、
// オフセットがintの範囲に収まることを確認する。
func (p PageRequest) Check() error {
	if p.Number < 0 {
		return NewInvalidArgumentError("page", "Page index must not be negative")
	}
	if p.Size < 1 {
		return NewInvalidArgumentError("size", "Page size must be at least 1")
	}
	if p.Number > math.MaxInt/p.Size {
		return NewInvalidArgumentError("page", "Page index is too large")
	}
	return nil
}

// Offset はSQLのOFFSETに渡す値を返す。
func (p PageRequest) Offset() int {
	return p.Number * p.Size
}

// Page はページングされた取得結果。
// キャッシュに格納されて複数リクエストで共有されるため、取得後に変更してはならない。
type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
}

// NewPage はPageを生成する。
func NewPage[T any](content []T, req PageRequest, total int64) *Page[T] {
	if content == nil {
		content = []T{}
	}
	return &Page[T]{
		Content:       content,
		Number:        req.Number,
		Size:          req.Size,
		TotalElements: total,
	}
}

// TotalPages は総ページ数を返す。
func (p *Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// IsEmpty はこのページに要素がないかを返す。
func (p *Page[T]) IsEmpty() bool {
	return len(p.Content) == 0
}

// IsFirst は先頭ページかを返す。
func (p *Page[T]) IsFirst() bool {
	return p.Number == 0
}

// IsLast は最終ページかを返す。
func (p *Page[T]) IsLast() bool {
	return p.Number+1 >= p.TotalPages()
}
