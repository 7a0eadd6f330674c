package photo

import "context"

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
)

// Filter is a single column comparison. A nil Value compares against NULL.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }

type Order struct {
	Column string
	Desc   bool
}

// Query selects photos. Filters are ANDed; Limit 0 means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

// NewestFirst is the archive order. id breaks created_at ties so the listing
// and re-election agree on which photo is the latest.
var NewestFirst = []Order{
	{Column: ColCreatedAt, Desc: true},
	{Column: ColID, Desc: true},
}

// Store is the record half of the backend. Implementations report an
// unreachable or misconfigured backend as ErrBackendUnavailable.
type Store interface {
	Select(ctx context.Context, q Query) ([]Photo, error)
	// Insert writes p and fills in the store-assigned ID and CreatedAt.
	Insert(ctx context.Context, p *Photo) error
	// Update applies fields to every matching row and returns the updated rows.
	Update(ctx context.Context, filters []Filter, fields map[string]any) ([]Photo, error)
	Delete(ctx context.Context, filters []Filter) error
}
