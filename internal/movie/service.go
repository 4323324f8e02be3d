// Package movie は映画の参照・登録・更新・削除・検索のドメインロジックを提供する。
package movie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/moviecatalog/internal/cache"
	"github.com/hitoshi/moviecatalog/internal/metrics"
	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/repository"
)

var tag = string(model.KindMovies)

// Service は映画のサービス層。
// 読み取りはキャッシュを経由し、書き込みの成功後に映画タグのエントリを全て無効化する。
type Service struct {
	repo    repository.MovieRepository
	cache   *cache.Store
	counter *metrics.RequestCounter
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.MovieRepository, store *cache.Store, counter *metrics.RequestCounter) *Service {
	return &Service{
		repo:    repo,
		cache:   store,
		counter: counter,
		now:     time.Now,
	}
}

// ListAll は全映画を返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Movie, error) {
	s.counter.Inc()

	movies, err := cache.GetOrCompute(ctx, s.cache, cache.AllKey(tag), func(ctx context.Context) ([]*model.Movie, error) {
		movies, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("映画一覧の取得に失敗しました: %w", err)
		}
		return movies, nil
	})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, model.NewNoResultsError(tag)
	}
	return movies, nil
}

// ListPaged は指定ページの映画を返す。
func (s *Service) ListPaged(ctx context.Context, req model.PageRequest) (*model.Page[*model.Movie], error) {
	s.counter.Inc()

	if err := req.Check(); err != nil {
		return nil, err
	}

	page, err := cache.GetOrCompute(ctx, s.cache, cache.PageKey(tag, req.Number, req.Size), func(ctx context.Context) (*model.Page[*model.Movie], error) {
		movies, total, err := s.repo.FindPage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("映画ページの取得に失敗しました: %w", err)
		}
		return model.NewPage(movies, req, total), nil
	})
	if err != nil {
		return nil, err
	}
	if page.IsEmpty() {
		return nil, model.NewNoResultsError(tag)
	}
	return page, nil
}

// Get は指定IMDB IDの映画を返す。
func (s *Service) Get(ctx context.Context, imdbID string) (*model.Movie, error) {
	s.counter.Inc()

	return cache.GetOrCompute(ctx, s.cache, cache.IDKey(tag, imdbID), func(ctx context.Context) (*model.Movie, error) {
		movie, err := s.repo.FindByID(ctx, imdbID)
		if err != nil {
			return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
		}
		if movie == nil {
			return nil, model.NewMovieNotFoundError(imdbID)
		}
		return movie, nil
	})
}

// Create は映画を登録する。IMDB IDが既に存在する場合はMOVIE_ALREADY_EXISTSを返す。
func (s *Service) Create(ctx context.Context, in *model.Movie) (*model.Movie, error) {
	s.counter.Inc()

	exists, err := s.repo.ExistsByID(ctx, in.ImdbID)
	if err != nil {
		return nil, fmt.Errorf("映画の重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewMovieAlreadyExistsError(in.ImdbID)
	}

	now := s.now().UTC()
	movie := &model.Movie{ImdbID: in.ImdbID, CreatedAt: now, UpdatedAt: now}
	movie.ApplyMutable(in)

	if err := s.repo.Create(ctx, movie); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewMovieAlreadyExistsError(in.ImdbID)
		}
		return nil, fmt.Errorf("映画の登録に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("movie created", slog.String("imdb_id", movie.ImdbID))

	return movie, nil
}

// Update は指定IMDB IDの映画の更新可能フィールドを上書きする。
// inのImdbIDは無視され、パスで指定したIDが保持される。
func (s *Service) Update(ctx context.Context, imdbID string, in *model.Movie) (*model.Movie, error) {
	s.counter.Inc()

	existing, err := s.repo.FindByID(ctx, imdbID)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewMovieNotFoundError(imdbID)
	}

	updated := *existing
	updated.ApplyMutable(in)
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewMovieNotFoundError(imdbID)
		}
		return nil, fmt.Errorf("映画の更新に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("movie updated", slog.String("imdb_id", imdbID))

	return &updated, nil
}

// Delete は指定IMDB IDの映画を削除する。
func (s *Service) Delete(ctx context.Context, imdbID string) error {
	s.counter.Inc()

	exists, err := s.repo.ExistsByID(ctx, imdbID)
	if err != nil {
		return fmt.Errorf("映画の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewMovieNotFoundError(imdbID)
	}

	if err := s.repo.DeleteByID(ctx, imdbID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMovieNotFoundError(imdbID)
		}
		return fmt.Errorf("映画の削除に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("movie deleted", slog.String("imdb_id", imdbID))

	return nil
}

// Search はタイトルまたは説明に語を含む映画を検索する。
func (s *Service) Search(ctx context.Context, term string, req model.PageRequest) (*model.Page[*model.Movie], error) {
	s.counter.Inc()

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.NewInvalidArgumentError("searchTerm", "Search term must not be blank")
	}
	if err := req.Check(); err != nil {
		return nil, err
	}

	page, err := cache.GetOrCompute(ctx, s.cache, cache.SearchKey(tag, term, req.Number, req.Size), func(ctx context.Context) (*model.Page[*model.Movie], error) {
		movies, total, err := s.repo.Search(ctx, term, req)
		if err != nil {
			return nil, fmt.Errorf("映画の検索に失敗しました: %w", err)
		}
		return model.NewPage(movies, req, total), nil
	})
	if err != nil {
		return nil, err
	}
	if page.IsEmpty() {
		return nil, model.NewNoResultsError(tag)
	}
	return page, nil
}

// RequestCount は起動後にこのサービスが受けた操作の回数を返す。
func (s *Service) RequestCount() uint64 {
	return s.counter.Value()
}
