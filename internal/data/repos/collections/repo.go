package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
)

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCollection = errors.New("invalid collection name")
)

// Repo is a schemaless flat-document collection.
type Repo interface {
	Name() string
	InsertMany(ctx context.Context, rows []records.Row) (int, error)
	InsertOne(ctx context.Context, row records.Row) (string, error)
	GetByID(ctx context.Context, id string) (records.Record, error)
	// UpdateFields overwrites the given top-level fields and reports whether a
	// document matched id.
	UpdateFields(ctx context.Context, id string, fields map[string]string) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, f records.Filter) (int64, error)
	Find(ctx context.Context, q records.Query) ([]records.Record, error)
}

// Provider hands out collection repos by name.
type Provider interface {
	Collection(name string) (Repo, error)
	Ping(ctx context.Context) error
}

// InsertError reports a bulk insert that stopped part way through.
type InsertError struct {
	Attempted int
	Inserted  int
	Err       error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("bulk insert stored %d of %d records: %v", e.Inserted, e.Attempted, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// ValidateName rejects names the store cannot address.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "",
		name != strings.TrimSpace(name),
		len(name) > 120,
		strings.ContainsAny(name, "$\x00"),
		strings.HasPrefix(name, "system."):
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
