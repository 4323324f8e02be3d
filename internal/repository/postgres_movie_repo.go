package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/moviecatalog/internal/model"
)

const movieColumns = `m.imdb_id, m.title, m.year, m.description, m.created_at, m.updated_at,
		        ARRAY(SELECT ma.actor_id FROM movie_actors ma WHERE ma.imdb_id = m.imdb_id ORDER BY ma.actor_id),
		        ARRAY(SELECT mp.url FROM movie_pictures mp WHERE mp.imdb_id = m.imdb_id ORDER BY mp.url)`

// PostgresMovieRepo はPostgreSQLを使用した映画リポジトリ。
type PostgresMovieRepo struct {
	db *sql.DB
}

// NewPostgresMovieRepo はPostgresMovieRepoを生成する。
func NewPostgresMovieRepo(db *sql.DB) *PostgresMovieRepo {
	return &PostgresMovieRepo{db: db}
}

func scanMovie(row rowScanner) (*model.Movie, error) {
	movie := &model.Movie{}
	var actors pq.Int64Array
	var pictures pq.StringArray

	if err := row.Scan(
		&movie.ImdbID, &movie.Title, &movie.Year, &movie.Description,
		&movie.CreatedAt, &movie.UpdatedAt, &actors, &pictures,
	); err != nil {
		return nil, err
	}

	movie.Actors = []int64(actors)
	movie.Pictures = []string(pictures)
	return movie, nil
}

func (r *PostgresMovieRepo) queryMovies(ctx context.Context, query string, args ...any) ([]*model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []*model.Movie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// FindByID は指定IMDB IDの映画を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByID(ctx context.Context, imdbID string) (*model.Movie, error) {
	movie, err := scanMovie(r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies m WHERE m.imdb_id = $1`,
		imdbID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	return movie, nil
}

// FindAll は全映画をIMDB ID昇順で取得する。
func (r *PostgresMovieRepo) FindAll(ctx context.Context) ([]*model.Movie, error) {
	movies, err := r.queryMovies(ctx, `SELECT `+movieColumns+` FROM movies m ORDER BY m.imdb_id`)
	if err != nil {
		return nil, fmt.Errorf("映画一覧の取得に失敗しました: %w", err)
	}
	return movies, nil
}

// FindPage は指定ページの映画をIMDB ID昇順で取得し、総件数とともに返す。
func (r *PostgresMovieRepo) FindPage(ctx context.Context, page model.PageRequest) ([]*model.Movie, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("映画件数の取得に失敗しました: %w", err)
	}

	movies, err := r.queryMovies(ctx,
		`SELECT `+movieColumns+` FROM movies m ORDER BY m.imdb_id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("映画ページの取得に失敗しました: %w", err)
	}
	return movies, total, nil
}

// ExistsByID は指定IMDB IDの映画が存在するかを返す。
func (r *PostgresMovieRepo) ExistsByID(ctx context.Context, imdbID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM movies WHERE imdb_id = $1)`, imdbID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("映画の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は映画と出演者・画像を同一トランザクションで作成する。
func (r *PostgresMovieRepo) Create(ctx context.Context, movie *model.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO movies (imdb_id, title, year, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		movie.ImdbID, movie.Title, movie.Year, movie.Description, movie.CreatedAt, movie.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("映画の作成に失敗しました: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("映画の作成に失敗しました: %w", err)
	}

	if err := insertMovieChildren(ctx, tx, movie); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update は映画情報と出演者・画像を上書き更新する。
func (r *PostgresMovieRepo) Update(ctx context.Context, movie *model.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE movies SET title = $2, year = $3, description = $4, updated_at = $5
		 WHERE imdb_id = $1`,
		movie.ImdbID, movie.Title, movie.Year, movie.Description, movie.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("映画の更新に失敗しました: %w", err)
	}
	if err := rowsAffectedOrNotFound(result); err != nil {
		return fmt.Errorf("映画 %s の更新に失敗しました: %w", movie.ImdbID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_actors WHERE imdb_id = $1`, movie.ImdbID); err != nil {
		return fmt.Errorf("出演者の削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_pictures WHERE imdb_id = $1`, movie.ImdbID); err != nil {
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	if err := insertMovieChildren(ctx, tx, movie); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func insertMovieChildren(ctx context.Context, tx *sql.Tx, movie *model.Movie) error {
	if len(movie.Actors) > 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO movie_actors (imdb_id, actor_id)
			 SELECT $1, unnest($2::bigint[])
			 ON CONFLICT DO NOTHING`,
			movie.ImdbID, pq.Array(movie.Actors),
		)
		if err != nil {
			return fmt.Errorf("出演者の登録に失敗しました: %w", err)
		}
	}
	if len(movie.Pictures) > 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO movie_pictures (imdb_id, url)
			 SELECT $1, unnest($2::text[])
			 ON CONFLICT DO NOTHING`,
			movie.ImdbID, pq.Array(movie.Pictures),
		)
		if err != nil {
			return fmt.Errorf("画像の登録に失敗しました: %w", err)
		}
	}
	return nil
}

// DeleteByID は指定IMDB IDの映画を削除する。
func (r *PostgresMovieRepo) DeleteByID(ctx context.Context, imdbID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE imdb_id = $1`, imdbID)
	if err != nil {
		return fmt.Errorf("映画の削除に失敗しました: %w", err)
	}
	if err := rowsAffectedOrNotFound(result); err != nil {
		return fmt.Errorf("映画 %s の削除に失敗しました: %w", imdbID, err)
	}
	return nil
}

// Search はタイトルまたは説明に語を含む映画を大文字小文字を区別せずに検索する。
func (r *PostgresMovieRepo) Search(ctx context.Context, term string, page model.PageRequest) ([]*model.Movie, int64, error) {
	pattern := containsPattern(term)
	const where = `WHERE lower(m.title) LIKE $1 OR lower(m.description) LIKE $1`

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM movies m `+where, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("映画検索の件数取得に失敗しました: %w", err)
	}

	movies, err := r.queryMovies(ctx,
		`SELECT `+movieColumns+` FROM movies m `+where+` ORDER BY m.imdb_id LIMIT $2 OFFSET $3`,
		pattern, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("映画の検索に失敗しました: %w", err)
	}
	return movies, total, nil
}

// compile-time interface check
var _ MovieRepository = (*PostgresMovieRepo)(nil)
