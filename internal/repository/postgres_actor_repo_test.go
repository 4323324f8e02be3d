package repository

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/moviecatalog/internal/model"
)

// PostgresActorRepoはActorRepositoryインターフェースを満たすことを検証
func TestPostgresActorRepo_ImplementsInterface(t *testing.T) {
	var _ ActorRepository = (*PostgresActorRepo)(nil)
}

func newTestActor(first, last string) *model.Actor {
	now := time.Now().UTC().Truncate(time.Millisecond)
	born := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Actor{
		FirstName: first,
		LastName:  last,
		BornDate:  &born,
		Movies:    []string{"tt0000002", "tt0000001"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresActorRepo_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)
	ctx := testContext(t)

	actor := newTestActor("Test", "Actor")
	if err := repo.Create(ctx, actor); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if actor.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := repo.FindByID(ctx, actor.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected actor, got nil")
	}
	if got.FirstName != "Test" || got.LastName != "Actor" {
		t.Errorf("name = %s %s, want Test Actor", got.FirstName, got.LastName)
	}
	if got.BornDate == nil || !got.BornDate.Equal(*actor.BornDate) {
		t.Errorf("BornDate = %v, want %v", got.BornDate, actor.BornDate)
	}
	if want := []string{"tt0000001", "tt0000002"}; !reflect.DeepEqual(got.Movies, want) {
		t.Errorf("Movies = %v, want %v", got.Movies, want)
	}
}

func TestPostgresActorRepo_FindByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)

	got, err := repo.FindByID(testContext(t), 99999)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestPostgresActorRepo_Create_DuplicateName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)
	ctx := testContext(t)

	if err := repo.Create(ctx, newTestActor("Same", "Name")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	err := repo.Create(ctx, newTestActor("Same", "Name"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	exists, err := repo.ExistsByName(ctx, "Same", "Name")
	if err != nil || !exists {
		t.Errorf("ExistsByName = %v, %v, want true, nil", exists, err)
	}
}

func TestPostgresActorRepo_UpdateReplacesMovies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)
	ctx := testContext(t)

	actor := newTestActor("Before", "Update")
	if err := repo.Create(ctx, actor); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	actor.FirstName = "After"
	actor.BornDate = nil
	actor.Movies = []string{"tt0000003"}
	actor.UpdatedAt = actor.UpdatedAt.Add(time.Minute)
	if err := repo.Update(ctx, actor); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, _ := repo.FindByID(ctx, actor.ID)
	if got.FirstName != "After" {
		t.Errorf("FirstName = %q, want %q", got.FirstName, "After")
	}
	if got.BornDate != nil {
		t.Errorf("BornDate = %v, want nil", got.BornDate)
	}
	if !reflect.DeepEqual(got.Movies, []string{"tt0000003"}) {
		t.Errorf("Movies = %v, want [tt0000003]", got.Movies)
	}
	if !got.CreatedAt.Equal(actor.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", actor.CreatedAt, got.CreatedAt)
	}
}

func TestPostgresActorRepo_UpdateAndDelete_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)
	ctx := testContext(t)

	missing := newTestActor("No", "One")
	missing.ID = 424242
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteByID(ctx, 424242); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteByID err = %v, want ErrNotFound", err)
	}
}

func TestPostgresActorRepo_PageAndSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresActorRepo(db)
	ctx := testContext(t)

	for _, name := range [][2]string{{"Tom", "Hanks"}, {"Tom", "Cruise"}, {"Meryl", "Streep"}, {"Anna", "Tomlin"}} {
		if err := repo.Create(ctx, newTestActor(name[0], name[1])); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	page, total, err := repo.FindPage(ctx, model.PageRequest{Number: 1, Size: 3})
	if err != nil {
		t.Fatalf("FindPage returned error: %v", err)
	}
	if total != 4 || len(page) != 1 {
		t.Errorf("FindPage = %d items / total %d, want 1 / 4", len(page), total)
	}

	found, total, err := repo.Search(ctx, "TOM", model.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if total != 3 || len(found) != 3 {
		t.Errorf("Search(TOM) = %d items / total %d, want 3 / 3", len(found), total)
	}

	none, total, err := repo.Search(ctx, "%", model.PageRequest{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if total != 0 || len(none) != 0 {
		t.Errorf("Search(%%) = %d items / total %d, want 0 / 0", len(none), total)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll returned error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("FindAll returned %d actors, want 4", len(all))
	}
}
