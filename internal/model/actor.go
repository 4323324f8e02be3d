// Package model はドメインモデルを定義する。
package model

import "time"

// Kind はキャッシュのタグおよびエラーカテゴリに使うエンティティ種別。
type Kind string

const (
	// KindActors は俳優エンティティを表す。
	KindActors Kind = "actors"
	// KindMovies は映画エンティティを表す。
	KindMovies Kind = "movies"
)

// Actor は俳優を表す。
// IDはDBのシーケンスで採番され、(FirstName, LastName)の組は一意。
type Actor struct {
	ID        int64
	FirstName string
	LastName  string
	BornDate  *time.Time // 日付のみ（UTC 00:00）。未設定の場合はnil
	Movies    []string   // 出演映画のIMDB ID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyMutable は更新可能なフィールドのみをsrcから上書きする。
// ID、CreatedAtは保持される。
func (a *Actor) ApplyMutable(src *Actor) {
	a.FirstName = src.FirstName
	a.LastName = src.LastName
	a.BornDate = src.BornDate
	a.Movies = src.Movies
}
