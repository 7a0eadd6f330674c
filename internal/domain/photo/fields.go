package photo

import "time"

// Value is one column assignment of a partial update. The zero Value leaves
// the column untouched; Null writes NULL.
type Value[T any] struct {
	set  bool
	null bool
	v    T
}

func Set[T any](v T) Value[T] { return Value[T]{set: true, v: v} }
func Null[T any]() Value[T] { return Value[T]{set: true, null: true} }

func (v Value[T]) IsSet() bool { return v.set }

func (v Value[T]) column() any {
	if v.null {
		return nil
	}
	return v.v
}

// Fields is the editable subset of a Photo.
type Fields struct {
	Description  Value[string]
	LocationName Value[string]
	PhotoDate    Value[time.Time]
	LocationLat  Value[float64]
	LocationLng  Value[float64]
}

func (f Fields) columns() map[string]any {
	cols := make(map[string]any, 5)
	if f.Description.set {
		cols[ColDescription] = f.Description.column()
	}
	if f.LocationName.set {
		cols[ColLocationName] = f.LocationName.column()
	}
	if f.PhotoDate.set {
		cols[ColPhotoDate] = f.PhotoDate.column()
	}
	if f.LocationLat.set {
		cols[ColLocationLat] = f.LocationLat.column()
	}
	if f.LocationLng.set {
		cols[ColLocationLng] = f.LocationLng.column()
	}
	return cols
}

// TextOrNull stores an empty string as NULL.
func TextOrNull(s string) Value[string] {
	if s == "" {
		return Null[string]()
	}
	return Set(s)
}
