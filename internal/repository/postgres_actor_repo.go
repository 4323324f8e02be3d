package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/moviecatalog/internal/model"
)

const actorColumns = `a.id, a.first_name, a.last_name, a.born_date, a.created_at, a.updated_at,
		        ARRAY(SELECT am.imdb_id FROM actor_movies am WHERE am.actor_id = a.id ORDER BY am.imdb_id)`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresActorRepo はPostgreSQLを使用した俳優リポジトリ。
type PostgresActorRepo struct {
	db *sql.DB
}

// NewPostgresActorRepo はPostgresActorRepoを生成する。
func NewPostgresActorRepo(db *sql.DB) *PostgresActorRepo {
	return &PostgresActorRepo{db: db}
}

func scanActor(row rowScanner) (*model.Actor, error) {
	actor := &model.Actor{}
	var bornDate sql.NullTime
	var movies pq.StringArray

	if err := row.Scan(
		&actor.ID, &actor.FirstName, &actor.LastName, &bornDate,
		&actor.CreatedAt, &actor.UpdatedAt, &movies,
	); err != nil {
		return nil, err
	}

	actor.BornDate = nullTimeValue(bornDate)
	actor.Movies = []string(movies)
	return actor, nil
}

func (r *PostgresActorRepo) queryActors(ctx context.Context, query string, args ...any) ([]*model.Actor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actors := []*model.Actor{}
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actors, nil
}

// FindByID は指定IDの俳優を取得する。見つからない場合はnilを返す。
func (r *PostgresActorRepo) FindByID(ctx context.Context, id int64) (*model.Actor, error) {
	actor, err := scanActor(r.db.QueryRowContext(ctx,
		`SELECT `+actorColumns+` FROM actors a WHERE a.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find actor by ID: %w", err)
	}
	return actor, nil
}

// FindAll は全俳優をID昇順で取得する。
func (r *PostgresActorRepo) FindAll(ctx context.Context) ([]*model.Actor, error) {
	actors, err := r.queryActors(ctx, `SELECT `+actorColumns+` FROM actors a ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	return actors, nil
}

// FindPage は指定ページの俳優をID昇順で取得し、総件数とともに返す。
func (r *PostgresActorRepo) FindPage(ctx context.Context, page model.PageRequest) ([]*model.Actor, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM actors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count actors: %w", err)
	}

	actors, err := r.queryActors(ctx,
		`SELECT `+actorColumns+` FROM actors a ORDER BY a.id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list actor page: %w", err)
	}
	return actors, total, nil
}

// ExistsByID は指定IDの俳優が存在するかを返す。
func (r *PostgresActorRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM actors WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check actor existence: %w", err)
	}
	return exists, nil
}

// ExistsByName は同じ名・姓の俳優が存在するかを返す。
func (r *PostgresActorRepo) ExistsByName(ctx context.Context, firstName, lastName string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM actors WHERE first_name = $1 AND last_name = $2)`,
		firstName, lastName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check actor name: %w", err)
	}
	return exists, nil
}

// Create は俳優と出演映画を同一トランザクションで作成し、採番したIDをactorに設定する。
func (r *PostgresActorRepo) Create(ctx context.Context, actor *model.Actor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO actors (first_name, last_name, born_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		actor.FirstName, actor.LastName, nullTime(actor.BornDate), actor.CreatedAt, actor.UpdatedAt,
	).Scan(&actor.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert actor: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert actor: %w", err)
	}

	if err := insertActorMovies(ctx, tx, actor.ID, actor.Movies); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update は俳優情報と出演映画を上書き更新する。
func (r *PostgresActorRepo) Update(ctx context.Context, actor *model.Actor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE actors SET first_name = $2, last_name = $3, born_date = $4, updated_at = $5
		 WHERE id = $1`,
		actor.ID, actor.FirstName, actor.LastName, nullTime(actor.BornDate), actor.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to update actor: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update actor: %w", err)
	}
	if err := rowsAffectedOrNotFound(result); err != nil {
		return fmt.Errorf("failed to update actor %d: %w", actor.ID, err)
	}

	// 出演映画は全置換
	if _, err := tx.ExecContext(ctx, `DELETE FROM actor_movies WHERE actor_id = $1`, actor.ID); err != nil {
		return fmt.Errorf("failed to clear actor movies: %w", err)
	}
	if err := insertActorMovies(ctx, tx, actor.ID, actor.Movies); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertActorMovies(ctx context.Context, tx *sql.Tx, actorID int64, movies []string) error {
	if len(movies) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO actor_movies (actor_id, imdb_id)
		 SELECT $1, unnest($2::text[])
		 ON CONFLICT DO NOTHING`,
		actorID, pq.Array(movies),
	)
	if err != nil {
		return fmt.Errorf("failed to insert actor movies: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの俳優を削除する。
func (r *PostgresActorRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete actor: %w", err)
	}
	if err := rowsAffectedOrNotFound(result); err != nil {
		return fmt.Errorf("failed to delete actor %d: %w", id, err)
	}
	return nil
}

// Search は名または姓に語を含む俳優を大文字小文字を区別せずに検索する。
func (r *PostgresActorRepo) Search(ctx context.Context, term string, page model.PageRequest) ([]*model.Actor, int64, error) {
	pattern := containsPattern(term)
	const where = `WHERE lower(a.first_name) LIKE $1 OR lower(a.last_name) LIKE $1`

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM actors a `+where, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count actor search results: %w", err)
	}

	actors, err := r.queryActors(ctx,
		`SELECT `+actorColumns+` FROM actors a `+where+` ORDER BY a.id LIMIT $2 OFFSET $3`,
		pattern, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search actors: %w", err)
	}
	return actors, total, nil
}

// compile-time interface check
var _ ActorRepository = (*PostgresActorRepo)(nil)
