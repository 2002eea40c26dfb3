package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

// EmailSearchFields are matched by the contact list search.
var EmailSearchFields = []string{"name", "email", "DeliveryPartner"}

type RecordListParams struct {
	Page   int
	Limit  int
	Search string
}

// RecordService is CRUD over one flat-record collection.
type RecordService interface {
	Collection() string
	List(ctx context.Context, p RecordListParams) (*types.Page, error)
	ListAll(ctx context.Context) ([]types.Record, error)
	Get(ctx context.Context, id string) (types.Record, error)
	// Create stringifies every field and returns the stored record.
	Create(ctx context.Context, body map[string]any) (types.Record, error)
	// Update overwrites the given fields and reports whether id matched.
	Update(ctx context.Context, id string, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type RecordServiceConfig struct {
	SearchFields []string
	Coercer      Coercer
}

type recordService struct {
	log  *logger.Logger
	repo repos.CollectionRepo
	cfg  RecordServiceConfig
}

func NewRecordService(baseLog *logger.Logger, repo repos.CollectionRepo, cfg RecordServiceConfig) RecordService {
	return &recordService{
		log:  baseLog.With("service", "RecordService", "collection", repo.Name()),
		repo: repo,
		cfg:  cfg,
	}
}

func (s *recordService) Collection() string { return s.repo.Name() }

func (s *recordService) List(ctx context.Context, p RecordListParams) (*types.Page, error) {
	q := records.Query{Filter: records.Filter{Search: p.Search, SearchFields: s.cfg.SearchFields}}
	page, err := fetchPage(ctx, s.repo, q, p.Page, p.Limit)
	if err != nil {
		s.log.Error("List records failed", "error", err)
		return nil, err
	}
	return page, nil
}

func (s *recordService) ListAll(ctx context.Context) ([]types.Record, error) {
	out, err := s.repo.Find(ctx, records.Query{})
	if err != nil {
		s.log.Error("List all records failed", "error", err)
		return nil, fmt.Errorf("find %s: %w", s.repo.Name(), err)
	}
	return out, nil
}

func (s *recordService) Get(ctx context.Context, id string) (types.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierr.BadRequest("missing_id", "Missing id")
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyRepoErr(err)
	}
	return rec, nil
}

func (s *recordService) Create(ctx context.Context, body map[string]any) (types.Record, error) {
	if body == nil {
		return nil, apierr.BadRequest("invalid_body", "request body must be a JSON object")
	}
	row, err := s.cfg.Coercer.Row(body)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.InsertOne(ctx, row)
	if err != nil {
		s.log.Error("Insert record failed", "error", err)
		return nil, fmt.Errorf("insert into %s: %w", s.repo.Name(), err)
	}
	doc := row.Map()
	doc[records.IDField] = id
	s.log.Info("Record created", "id", id, "fields", len(row))
	return doc, nil
}

func (s *recordService) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	if strings.TrimSpace(id) == "" || fields == nil {
		return false, apierr.BadRequest("missing_fields", "Missing id or updatedFields")
	}
	set, err := s.cfg.Coercer.Fields(fields)
	if err != nil {
		return false, err
	}
	matched, err := s.repo.UpdateFields(ctx, id, set)
	if err != nil {
		return false, classifyRepoErr(err)
	}
	s.log.Info("Record updated", "id", id, "matched", matched, "fields", set)
	return matched, nil
}

func (s *recordService) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, apierr.BadRequest("missing_id", "Missing id")
	}
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, classifyRepoErr(err)
	}
	s.log.Info("Record deleted", "id", id, "deleted", deleted)
	return deleted, nil
}

func classifyRepoErr(err error) error {
	switch {
	case errors.Is(err, repos.ErrInvalidID):
		return apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid id"))
	case errors.Is(err, repos.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", errors.New("record not found"))
	case errors.Is(err, repos.ErrInvalidCollection):
		return apierr.New(http.StatusBadRequest, "invalid_collection", err)
	default:
		return err
	}
}

// CollectionService resolves ad-hoc collections by name for the generic data
// endpoints.
type CollectionService interface {
	For(name string) (RecordService, error)
}

type collectionService struct {
	log      *logger.Logger
	provider repos.CollectionProvider
	coercer  Coercer
}

func NewCollectionService(baseLog *logger.Logger, provider repos.CollectionProvider, coercer Coercer) CollectionService {
	return &collectionService{
		log:      baseLog.With("service", "CollectionService"),
		provider: provider,
		coercer:  coercer,
	}
}

func (s *collectionService) For(name string) (RecordService, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.BadRequest("missing_collection", "Missing collection name")
	}
	repo, err := s.provider.Collection(name)
	if err != nil {
		return nil, classifyRepoErr(err)
	}
	return NewRecordService(s.log, repo, RecordServiceConfig{Coercer: s.coercer}), nil
}
