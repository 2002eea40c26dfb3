package collections

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

// MemoryProvider keeps collections in process memory. Collections are created on
// first use, as a document store would.
type MemoryProvider struct {
	log   *logger.Logger
	mu    sync.Mutex
	colls map[string]*memoryRepo
}

func NewMemoryProvider(baseLog *logger.Logger) *MemoryProvider {
	return &MemoryProvider{
		log:   baseLog.With("repo", "MemoryCollectionRepo"),
		colls: map[string]*memoryRepo{},
	}
}

func (p *MemoryProvider) Collection(name string) (Repo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	repo, ok := p.colls[name]
	if !ok {
		repo = &memoryRepo{name: name}
		p.colls[name] = repo
	}
	return repo, nil
}

func (p *MemoryProvider) Ping(ctx context.Context) error { return ctx.Err() }

// Seed stores documents as-is, assigning ids where missing. Used to stand in for
// collections written by other processes.
func (p *MemoryProvider) Seed(name string, docs ...records.Record) error {
	repo, err := p.Collection(name)
	if err != nil {
		return err
	}
	m := repo.(*memoryRepo)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		doc := make(records.Record, len(d)+1)
		for k, v := range d {
			doc[k] = v
		}
		if doc.ID() == "" {
			doc[records.IDField] = primitive.NewObjectID().Hex()
		}
		m.docs = append(m.docs, doc)
	}
	return nil
}

type memoryRepo struct {
	name string
	mu   sync.RWMutex
	docs []records.Record
}

func (r *memoryRepo) Name() string { return r.name }

func (r *memoryRepo) InsertMany(ctx context.Context, rows []records.Row) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &InsertError{Attempted: len(rows), Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.docs = append(r.docs, newDoc(row))
	}
	return len(rows), nil
}

func (r *memoryRepo) InsertOne(ctx context.Context, row records.Row) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := newDoc(row)
	r.docs = append(r.docs, doc)
	return doc.ID(), nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	if _, err := parseID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(strings.TrimSpace(id))
	if i < 0 {
		return nil, ErrNotFound
	}
	return copyDoc(r.docs[i]), nil
}

func (r *memoryRepo) UpdateFields(ctx context.Context, id string, fields map[string]string) (bool, error) {
	if _, err := parseID(id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(strings.TrimSpace(id))
	if i < 0 {
		return false, nil
	}
	for k, v := range fields {
		r.docs[i][k] = v
	}
	return true, nil
}

func (r *memoryRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	if _, err := parseID(id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(strings.TrimSpace(id))
	if i < 0 {
		return false, nil
	}
	r.docs = append(r.docs[:i], r.docs[i+1:]...)
	return true, nil
}

func (r *memoryRepo) Count(ctx context.Context, f records.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, d := range r.docs {
		if Matches(d, f) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Find(ctx context.Context, q records.Query) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// matched docs are copied under the read lock; UpdateFields mutates the
	// stored maps in place
	r.mu.RLock()
	matched := make([]records.Record, 0)
	for _, d := range r.docs {
		if Matches(d, q.Filter) {
			matched = append(matched, copyDoc(d))
		}
	}
	r.mu.RUnlock()

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, s := range q.Sort {
				c := compareValues(matched[i][s.Field], matched[j][s.Field])
				if c == 0 {
					continue
				}
				if s.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			return []records.Record{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]records.Record, 0, len(matched))
	for _, d := range matched {
		out = append(out, project(d, q.Only, q.Exclude))
	}
	return out, nil
}

func (r *memoryRepo) indexOf(id string) int {
	for i, d := range r.docs {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

// Matches evaluates f against a document with the same semantics as FilterDoc.
func Matches(doc records.Record, f records.Filter) bool {
	for k, want := range f.Equals {
		got, ok := doc[k].(string)
		if !ok || !strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want)) {
			return false
		}
	}
	if !f.HasSearch() {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for _, field := range f.SearchFields {
		s, ok := doc[field].(string)
		if ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func newDoc(row records.Row) records.Record {
	doc := row.Map()
	doc[records.IDField] = primitive.NewObjectID().Hex()
	return doc
}

func copyDoc(d records.Record) records.Record {
	out := make(records.Record, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func project(d records.Record, only, exclude []string) records.Record {
	out := make(records.Record, len(d))
	if len(only) > 0 {
		for _, f := range only {
			if v, ok := d[f]; ok {
				out[f] = v
			}
		}
		if v, ok := d[records.IDField]; ok && !contains(exclude, records.IDField) {
			out[records.IDField] = v
		}
		return out
	}
	for k, v := range d {
		if !contains(exclude, k) {
			out[k] = v
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// compareValues orders missing < numbers < strings < bools < times, mirroring the
// store's cross-type sort order closely enough for the fields sorted on.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 4:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	case time.Time:
		return 4
	default:
		return 5
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	}
	return 0
}
