// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/moviecatalog/internal/model"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しなかったことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("duplicate record")
)

// ActorRepository は俳優データの永続化インターフェース。
type ActorRepository interface {
	// FindByID は指定IDの俳優を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Actor, error)

	// FindAll は全俳優をID昇順で取得する。
	FindAll(ctx context.Context) ([]*model.Actor, error)

	// FindPage は指定ページの俳優をID昇順で取得し、総件数とともに返す。
	FindPage(ctx context.Context, page model.PageRequest) ([]*model.Actor, int64, error)

	// ExistsByID は指定IDの俳優が存在するかを返す。
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// ExistsByName は同じ名・姓の俳優が存在するかを返す。大文字小文字を区別する。
	ExistsByName(ctx context.Context, firstName, lastName string) (bool, error)

	// Create は俳優と出演映画を同一トランザクションで作成し、採番したIDをactorに設定する。
	// 名・姓が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, actor *model.Actor) error

	// Update は俳優情報と出演映画を上書き更新する。
	// 対象が存在しない場合はErrNotFound、名・姓が他の俳優と重複する場合はErrDuplicateを返す。
	Update(ctx context.Context, actor *model.Actor) error

	// DeleteByID は指定IDの俳優を削除する。出演映画はCASCADE削除される。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id int64) error

	// Search は名または姓に語を含む俳優を大文字小文字を区別せずに検索する。
	Search(ctx context.Context, term string, page model.PageRequest) ([]*model.Actor, int64, error)
}

// MovieRepository は映画データの永続化インターフェース。
type MovieRepository interface {
	// FindByID は指定IMDB IDの映画を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, imdbID string) (*model.Movie, error)

	// FindAll は全映画をIMDB ID昇順で取得する。
	FindAll(ctx context.Context) ([]*model.Movie, error)

	// FindPage は指定ページの映画をIMDB ID昇順で取得し、総件数とともに返す。
	FindPage(ctx context.Context, page model.PageRequest) ([]*model.Movie, int64, error)

	// ExistsByID は指定IMDB IDの映画が存在するかを返す。
	ExistsByID(ctx context.Context, imdbID string) (bool, error)

	// Create は映画と出演者・画像を同一トランザクションで作成する。
	// IMDB IDが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, movie *model.Movie) error

	// Update は映画情報と出演者・画像を上書き更新する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, movie *model.Movie) error

	// DeleteByID は指定IMDB IDの映画を削除する。出演者・画像はCASCADE削除される。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, imdbID string) error

	// Search はタイトルまたは説明に語を含む映画を大文字小文字を区別せずに検索する。
	Search(ctx context.Context, term string, page model.PageRequest) ([]*model.Movie, int64, error)
}
