package photo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore serves the Store contract from a SQL database (PostgreSQL or
// SQLite) through GORM.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Select(ctx context.Context, q Query) ([]Photo, error) {
	tx, err := applyFilters(s.db.WithContext(ctx).Model(&Photo{}), q.Filters)
	if err != nil {
		return nil, err
	}
	for _, o := range q.Order {
		if !KnownColumn(o.Column) {
			return nil, fmt.Errorf("%w: unknown order column %q", ErrValidation, o.Column)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var photos []Photo
	if err := tx.Find(&photos).Error; err != nil {
		return nil, mapDBError(err)
	}
	return photos, nil
}

func (s *gormStore) Insert(ctx context.Context, p *Photo) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return mapDBError(err)
	}
	return nil
}

func (s *gormStore) Update(ctx context.Context, filters []Filter, fields map[string]any) ([]Photo, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("%w: update without filter", ErrValidation)
	}
	for col := range fields {
		if !KnownColumn(col) || col == ColID || col == ColCreatedAt || col == ColImageURL {
			return nil, fmt.Errorf("%w: column %q cannot be updated", ErrValidation, col)
		}
	}

	var updated []Photo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matched, err := applyFilters(tx.Model(&Photo{}), filters)
		if err != nil {
			return err
		}
		var ids []int64
		if err := matched.Pluck(ColID, &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&Photo{}).Where("id IN ?", ids).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Order("id").Find(&updated).Error
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, mapDBError(err)
	}
	return updated, nil
}

func (s *gormStore) Delete(ctx context.Context, filters []Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: delete without filter", ErrValidation)
	}
	tx, err := applyFilters(s.db.WithContext(ctx), filters)
	if err != nil {
		return err
	}
	if err := tx.Delete(&Photo{}).Error; err != nil {
		return mapDBError(err)
	}
	return nil
}

func applyFilters(tx *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if !KnownColumn(f.Column) {
			return nil, fmt.Errorf("%w: unknown filter column %q", ErrValidation, f.Column)
		}
		col := clause.Column{Name: f.Column}
		switch f.Op {
		case OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		case OpNeq:
			tx = tx.Where(clause.Neq{Column: col, Value: f.Value})
		default:
			return nil, fmt.Errorf("%w: unsupported filter op %q", ErrValidation, f.Op)
		}
	}
	return tx, nil
}

// mapDBError turns connection and authentication failures into
// ErrBackendUnavailable and leaves every other error as is.
func mapDBError(err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 28: invalid authorization
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "28") {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return err
}
