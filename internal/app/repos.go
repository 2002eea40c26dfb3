package app

import (
	"fmt"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type Repos struct {
	Provider  repos.CollectionProvider
	Shipments repos.CollectionRepo
	Delayed   repos.CollectionRepo
	Emails    repos.CollectionRepo
}

func wireRepos(log *logger.Logger, cfg Config, clients Clients) (Repos, error) {
	log.Info("Wiring repos...")

	var provider repos.CollectionProvider
	if clients.Mongo != nil {
		provider = repos.NewMongoCollectionProvider(clients.Mongo, log)
	} else {
		log.Warn("Using in-process record store; data is not persisted")
		provider = repos.NewMemoryCollectionProvider(log)
	}

	shipments, err := provider.Collection(cfg.ShipmentsCollection)
	if err != nil {
		return Repos{}, fmt.Errorf("shipments collection: %w", err)
	}
	delayed, err := provider.Collection(cfg.DelayedCollection)
	if err != nil {
		return Repos{}, fmt.Errorf("delayed shipments collection: %w", err)
	}
	emails, err := provider.Collection(cfg.EmailsCollection)
	if err != nil {
		return Repos{}, fmt.Errorf("emails collection: %w", err)
	}

	return Repos{
		Provider:  provider,
		Shipments: shipments,
		Delayed:   delayed,
		Emails:    emails,
	}, nil
}
