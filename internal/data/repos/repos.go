package repos

import (
	"github.com/yungbote/shipdash-backend/internal/data/db"
	"github.com/yungbote/shipdash-backend/internal/data/repos/collections"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type CollectionRepo = collections.Repo
type CollectionProvider = collections.Provider
type MemoryCollectionProvider = collections.MemoryProvider
type InsertError = collections.InsertError

var (
	ErrInvalidID         = collections.ErrInvalidID
	ErrNotFound          = collections.ErrNotFound
	ErrInvalidCollection = collections.ErrInvalidCollection
)

func NewMongoCollectionProvider(svc *db.MongoService, baseLog *logger.Logger) CollectionProvider {
	return collections.NewMongoProvider(svc, baseLog)
}

func NewMemoryCollectionProvider(baseLog *logger.Logger) *MemoryCollectionProvider {
	return collections.NewMemoryProvider(baseLog)
}
