// Package actor は俳優の参照・登録・更新・削除・検索のドメインロジックを提供する。
//
// 読み取りはキャッシュを経由し、書き込みが成功した後に俳優タグのエントリを全て無効化する。
package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/moviecatalog/internal/cache"
	"github.com/hitoshi/moviecatalog/internal/metrics"
	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/repository"
)

var tag = string(model.KindActors)

// Service は俳優のサービス層。
type Service struct {
	repo    repository.ActorRepository
	cache   *cache.Store
	counter *metrics.RequestCounter
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ActorRepository, store *cache.Store, counter *metrics.RequestCounter) *Service {
	return &Service{
		repo:    repo,
		cache:   store,
		counter: counter,
		now:     time.Now,
	}
}

// ListAll は全俳優を返す。0件の場合はNO_RESULTSを返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Actor, error) {
	s.counter.Inc()

	actors, err := cache.GetOrCompute(ctx, s.cache, cache.AllKey(tag), func(ctx context.Context) ([]*model.Actor, error) {
		actors, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("俳優一覧の取得に失敗しました: %w", err)
		}
		return actors, nil
	})
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, model.NewNoResultsError(tag)
	}
	return actors, nil
}

// ListPaged は指定ページの俳優を返す。ページが空の場合はNO_RESULTSを返す。
func (s *Service) ListPaged(ctx context.Context, req model.PageRequest) (*model.Page[*model.Actor], error) {
	s.counter.Inc()

	if err := req.Check(); err != nil {
		return nil, err
	}

	page, err := cache.GetOrCompute(ctx, s.cache, cache.PageKey(tag, req.Number, req.Size), func(ctx context.Context) (*model.Page[*model.Actor], error) {
		actors, total, err := s.repo.FindPage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("俳優ページの取得に失敗しました: %w", err)
		}
		return model.NewPage(actors, req, total), nil
	})
	if err != nil {
		return nil, err
	}
	if page.IsEmpty() {
		return nil, model.NewNoResultsError(tag)
	}
	return page, nil
}

// Get は指定IDの俳優を返す。存在しない結果はキャッシュしない。
func (s *Service) Get(ctx context.Context, id int64) (*model.Actor, error) {
	s.counter.Inc()

	return cache.GetOrCompute(ctx, s.cache, cache.IDKey(tag, strconv.FormatInt(id, 10)), func(ctx context.Context) (*model.Actor, error) {
		actor, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("俳優の取得に失敗しました: %w", err)
		}
		if actor == nil {
			return nil, model.NewActorNotFoundError(id)
		}
		return actor, nil
	})
}

// Create は俳優を登録し、採番されたIDとタイムスタンプを含む俳優を返す。
// 同じ名・姓の俳優が既に存在する場合はACTOR_ALREADY_EXISTSを返す。
func (s *Service) Create(ctx context.Context, in *model.Actor) (*model.Actor, error) {
	s.counter.Inc()

	exists, err := s.repo.ExistsByName(ctx, in.FirstName, in.LastName)
	if err != nil {
		return nil, fmt.Errorf("俳優の重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewActorAlreadyExistsError(in.FirstName, in.LastName)
	}

	now := s.now().UTC()
	actor := &model.Actor{CreatedAt: now, UpdatedAt: now}
	actor.ApplyMutable(in)

	if err := s.repo.Create(ctx, actor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewActorAlreadyExistsError(in.FirstName, in.LastName)
		}
		return nil, fmt.Errorf("俳優の登録に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("actor created", slog.Int64("actor_id", actor.ID))

	return actor, nil
}

// Update は指定IDの俳優の更新可能フィールドを上書きする。IDと作成日時は保持される。
func (s *Service) Update(ctx context.Context, id int64, in *model.Actor) (*model.Actor, error) {
	s.counter.Inc()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("俳優の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewActorNotFoundError(id)
	}

	updated := *existing
	updated.ApplyMutable(in)
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewActorNotFoundError(id)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewActorAlreadyExistsError(in.FirstName, in.LastName)
		}
		return nil, fmt.Errorf("俳優の更新に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("actor updated", slog.Int64("actor_id", id))

	return &updated, nil
}

// Delete は指定IDの俳優を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.counter.Inc()

	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("俳優の存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewActorNotFoundError(id)
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewActorNotFoundError(id)
		}
		return fmt.Errorf("俳優の削除に失敗しました: %w", err)
	}

	s.cache.EvictAll(tag)
	slog.Info("actor deleted", slog.Int64("actor_id", id))

	return nil
}

// Search は名または姓に語を含む俳優を大文字小文字を区別せずに検索する。
// 語が空白のみの場合はINVALID_ARGUMENTを返す。
func (s *Service) Search(ctx context.Context, term string, req model.PageRequest) (*model.Page[*model.Actor], error) {
	s.counter.Inc()

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.NewInvalidArgumentError("searchTerm", "Search term must not be blank")
	}
	if err := req.Check(); err != nil {
		return nil, err
	}

	page, err := cache.GetOrCompute(ctx, s.cache, cache.SearchKey(tag, term, req.Number, req.Size), func(ctx context.Context) (*model.Page[*model.Actor], error) {
		actors, total, err := s.repo.Search(ctx, term, req)
		if err != nil {
			return nil, fmt.Errorf("俳優の検索に失敗しました: %w", err)
		}
		return model.NewPage(actors, req, total), nil
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
// 呼び出し自体は数えない。
func (s *Service) RequestCount() uint64 {
	return s.counter.Value()
}
