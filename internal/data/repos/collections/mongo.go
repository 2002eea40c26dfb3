package collections

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/shipdash-backend/internal/data/db"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type mongoProvider struct {
	svc *db.MongoService
	log *logger.Logger
}

func NewMongoProvider(svc *db.MongoService, baseLog *logger.Logger) Provider {
	return &mongoProvider{svc: svc, log: baseLog.With("repo", "MongoCollectionRepo")}
}

func (p *mongoProvider) Collection(name string) (Repo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &mongoRepo{coll: p.svc.DB().Collection(name), log: p.log.With("collection", name)}, nil
}

func (p *mongoProvider) Ping(ctx context.Context) error { return p.svc.Ping(ctx) }

type mongoRepo struct {
	coll *mongo.Collection
	log  *logger.Logger
}

func (r *mongoRepo) Name() string { return r.coll.Name() }

func (r *mongoRepo) InsertMany(ctx context.Context, rows []records.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, rowDoc(row))
	}
	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		inserted := 0
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			// ordered inserts stop at the first failing document
			inserted = bwe.WriteErrors[0].Index
		}
		return inserted, &InsertError{Attempted: len(rows), Inserted: inserted, Err: err}
	}
	return len(res.InsertedIDs), nil
}

func (r *mongoRepo) InsertOne(ctx context.Context, row records.Row) (string, error) {
	res, err := r.coll.InsertOne(ctx, rowDoc(row))
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toRecord(doc), nil
}

func (r *mongoRepo) UpdateFields(ctx context.Context, id string, fields map[string]string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	if len(set) == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		return n > 0, err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo) Count(ctx context.Context, f records.Filter) (int64, error) {
	return r.coll.CountDocuments(ctx, FilterDoc(f))
}

func (r *mongoRepo) Find(ctx context.Context, q records.Query) ([]records.Record, error) {
	opts := options.Find()
	if sort := SortDoc(q.Sort); len(sort) > 0 {
		opts.SetSort(sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if proj := ProjectionDoc(q.Only, q.Exclude); len(proj) > 0 {
		opts.SetProjection(proj)
	}

	cur, err := r.coll.Find(ctx, FilterDoc(q.Filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]records.Record, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, toRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterDoc renders a Filter as a query document. Search text is matched
// literally, not as a pattern.
func FilterDoc(f records.Filter) bson.M {
	doc := bson.M{}
	if f.HasSearch() {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(f.Search)), Options: "i"}
		or := make(bson.A, 0, len(f.SearchFields))
		for _, field := range f.SearchFields {
			or = append(or, bson.M{field: bson.M{"$regex": re}})
		}
		doc["$or"] = or
	}
	for k, v := range f.Equals {
		doc[k] = bson.M{"$regex": equalsRegex(v)}
	}
	return doc
}

// equalsRegex anchors v for a case-insensitive whole-value match that tolerates
// surrounding whitespace in the stored value.
func equalsRegex(v string) primitive.Regex {
	return primitive.Regex{Pattern: `^\s*` + regexp.QuoteMeta(strings.TrimSpace(v)) + `\s*$`, Options: "i"}
}

func SortDoc(fields []records.SortField) bson.D {
	out := bson.D{}
	for _, s := range fields {
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: s.Field, Value: dir})
	}
	return out
}

// ProjectionDoc builds an inclusion projection when only is set, otherwise an
// exclusion projection. Inclusion projections may still drop _id.
func ProjectionDoc(only, exclude []string) bson.D {
	out := bson.D{}
	if len(only) > 0 {
		for _, f := range exclude {
			if f == records.IDField {
				out = append(out, bson.E{Key: records.IDField, Value: 0})
			}
		}
		for _, f := range only {
			out = append(out, bson.E{Key: f, Value: 1})
		}
		return out
	}
	for _, f := range exclude {
		out = append(out, bson.E{Key: f, Value: 0})
	}
	return out
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func rowDoc(row records.Row) bson.D {
	doc := make(bson.D, 0, len(row))
	for _, f := range row {
		doc = append(doc, bson.E{Key: f.Key, Value: f.Value})
	}
	return doc
}

func toRecord(doc bson.M) records.Record {
	out := make(records.Record, len(doc))
	for k, v := range doc {
		out[k] = plainValue(v)
	}
	return out
}

// plainValue converts driver types into JSON-friendly values.
func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	case primitive.M:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = plainValue(val)
		}
		return m
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case primitive.A:
		a := make([]interface{}, len(t))
		for i, val := range t {
			a[i] = plainValue(val)
		}
		return a
	default:
		return v
	}
}
