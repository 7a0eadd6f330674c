package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tweestoelen/internal/domain/photo"
)

const photosTable = "photos"

// RecordStore serves photo.Store over PostgREST.
type RecordStore struct {
	c     *Client
	table string
}

func NewRecordStore(c *Client) *RecordStore {
	return &RecordStore{c: c, table: photosTable}
}

// photoRow mirrors the JSON PostgREST returns. Dates stay strings because a
// date column comes back as YYYY-MM-DD, which time.Time cannot decode.
type photoRow struct {
	ID           int64    `json:"id"`
	ImageURL     string   `json:"image_url"`
	CreatedAt    string   `json:"created_at"`
	IsCurrent    bool     `json:"is_current"`
	LocationLat  *float64 `json:"location_lat"`
	LocationLng  *float64 `json:"location_lng"`
	LocationName *string  `json:"location_name"`
	PhotoDate    *string  `json:"photo_date"`
	Description  *string  `json:"description"`
}

func (r photoRow) toPhoto() (photo.Photo, error) {
	p := photo.Photo{
		ID:           r.ID,
		ImageURL:     r.ImageURL,
		IsCurrent:    r.IsCurrent,
		LocationLat:  r.LocationLat,
		LocationLng:  r.LocationLng,
		LocationName: r.LocationName,
		Description:  r.Description,
	}
	if r.CreatedAt != "" {
		t, err := parseTimestamp(r.CreatedAt)
		if err != nil {
			return p, fmt.Errorf("photo %d created_at: %w", r.ID, err)
		}
		p.CreatedAt = t
	}
	if r.PhotoDate != nil && *r.PhotoDate != "" {
		t, err := parseTimestamp(*r.PhotoDate)
		if err != nil {
			return p, fmt.Errorf("photo %d photo_date: %w", r.ID, err)
		}
		p.PhotoDate = &t
	}
	return p, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (s *RecordStore) Select(ctx context.Context, q photo.Query) ([]photo.Photo, error) {
	params, err := filterParams(q.Filters)
	if err != nil {
		return nil, err
	}
	params.Set("select", "*")
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if !photo.KnownColumn(o.Column) {
				return nil, fmt.Errorf("%w: unknown order column %q", photo.ErrValidation, o.Column)
			}
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var rows []photoRow
	if err := s.c.do(ctx, request{method: http.MethodGet, path: s.path(), query: params}, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	return toPhotos(rows)
}

func (s *RecordStore) Insert(ctx context.Context, p *photo.Photo) error {
	fields := map[string]any{
		photo.ColImageURL:  p.ImageURL,
		photo.ColIsCurrent: p.IsCurrent,
	}
	if p.LocationName != nil {
		fields[photo.ColLocationName] = *p.LocationName
	}
	if p.Description != nil {
		fields[photo.ColDescription] = *p.Description
	}
	if p.PhotoDate != nil {
		fields[photo.ColPhotoDate] = *p.PhotoDate
	}
	body, err := jsonBody([]map[string]any{fields})
	if err != nil {
		return err
	}

	var rows []photoRow
	err = s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        s.path(),
		body:        body,
		contentType: "application/json",
		header:      http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert into %s: no row returned", s.table)
	}
	inserted, err := rows[0].toPhoto()
	if err != nil {
		return err
	}
	*p = inserted
	return nil
}

func (s *RecordStore) Update(ctx context.Context, filters []photo.Filter, fields map[string]any) ([]photo.Photo, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("%w: update without filter", photo.ErrValidation)
	}
	params, err := filterParams(filters)
	if err != nil {
		return nil, err
	}
	params.Set("select", "*")
	body, err := jsonBody(fields)
	if err != nil {
		return nil, err
	}

	var rows []photoRow
	err = s.c.do(ctx, request{
		method:      http.MethodPatch,
		path:        s.path(),
		query:       params,
		body:        body,
		contentType: "application/json",
		header:      http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.table, err)
	}
	return toPhotos(rows)
}

func (s *RecordStore) Delete(ctx context.Context, filters []photo.Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: delete without filter", photo.ErrValidation)
	}
	params, err := filterParams(filters)
	if err != nil {
		return err
	}
	err = s.c.do(ctx, request{
		method: http.MethodDelete,
		path:   s.path(),
		query:  params,
		header: http.Header{"Prefer": {"return=minimal"}},
	}, nil)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", s.table, err)
	}
	return nil
}

func (s *RecordStore) path() string { return "/rest/v1/" + s.table }

func filterParams(filters []photo.Filter) (url.Values, error) {
	params := url.Values{}
	for _, f := range filters {
		if !photo.KnownColumn(f.Column) {
			return nil, fmt.Errorf("%w: unknown filter column %q", photo.ErrValidation, f.Column)
		}
		var op string
		switch f.Op {
		case photo.OpEq:
			op = "eq"
		case photo.OpNeq:
			op = "neq"
		default:
			return nil, fmt.Errorf("%w: unsupported filter op %q", photo.ErrValidation, f.Op)
		}
		if f.Value == nil {
			if f.Op == photo.OpEq {
				params.Add(f.Column, "is.null")
			} else {
				params.Add(f.Column, "not.is.null")
			}
			continue
		}
		params.Add(f.Column, op+"."+formatValue(f.Value))
	}
	return params, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func toPhotos(rows []photoRow) ([]photo.Photo, error) {
	photos := make([]photo.Photo, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPhoto()
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, nil
}
