package photo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository mediates every read and write of photo records. Nothing is
// cached: each call goes to the Store.
type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Migrate creates the photos table for the SQL-backed store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Photo{})
}

// GetCurrent returns the featured photo, or nil when none is flagged. When
// concurrent uploads left more than one flagged, the newest one wins.
func (r *Repository) GetCurrent(ctx context.Context) (*Photo, error) {
	return r.first(ctx, Query{
		Filters: []Filter{Eq(ColIsCurrent, true)},
		Order:   NewestFirst,
		Limit:   1,
	})
}

// GetAll returns every photo, most recent first.
func (r *Repository) GetAll(ctx context.Context) ([]Photo, error) {
	photos, err := r.store.Select(ctx, Query{Order: NewestFirst})
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	if photos == nil {
		photos = []Photo{}
	}
	return photos, nil
}

// GetByID returns nil when the photo does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Photo, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid photo id %d", ErrValidation, id)
	}
	return r.first(ctx, Query{Filters: []Filter{Eq(ColID, id)}, Limit: 1})
}

// UpdateFields applies a partial update; unset fields are left untouched.
func (r *Repository) UpdateFields(ctx context.Context, id int64, f Fields) (*Photo, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid photo id %d", ErrValidation, id)
	}
	cols := f.columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	rows, err := r.store.Update(ctx, []Filter{Eq(ColID, id)}, cols)
	if err != nil {
		return nil, fmt.Errorf("update photo %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return &rows[0], nil
}

// ClearCurrent unflags whichever photo is current. It is a no-op when none is.
func (r *Repository) ClearCurrent(ctx context.Context) error {
	_, err := r.store.Update(ctx, []Filter{Eq(ColIsCurrent, true)}, map[string]any{ColIsCurrent: false})
	if err != nil {
		return fmt.Errorf("clear current photo: %w", err)
	}
	return nil
}

// InsertCurrent records a new photo flagged as current. Callers clear the
// previous current photo first.
func (r *Repository) InsertCurrent(ctx context.Context, imageURL string) (*Photo, error) {
	p := &Photo{ImageURL: imageURL, IsCurrent: true}
	if err := r.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, []Filter{Eq(ColID, id)}); err != nil {
		return fmt.Errorf("delete photo %d: %w", id, err)
	}
	return nil
}

// Latest returns the most recently created photo, or nil when there are none.
func (r *Repository) Latest(ctx context.Context) (*Photo, error) {
	return r.first(ctx, Query{Order: NewestFirst, Limit: 1})
}

func (r *Repository) MarkCurrent(ctx context.Context, id int64) error {
	_, err := r.store.Update(ctx, []Filter{Eq(ColID, id)}, map[string]any{ColIsCurrent: true})
	if err != nil {
		return fmt.Errorf("mark photo %d current: %w", id, err)
	}
	return nil
}

// DeleteAll removes every record.
func (r *Repository) DeleteAll(ctx context.Context) error {
	if err := r.store.Delete(ctx, []Filter{Neq(ColID, 0)}); err != nil {
		return fmt.Errorf("delete all photos: %w", err)
	}
	return nil
}

// Ping performs a trivial read.
func (r *Repository) Ping(ctx context.Context) error {
	_, err := r.store.Select(ctx, Query{Limit: 1})
	return err
}

func (r *Repository) first(ctx context.Context, q Query) (*Photo, error) {
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
