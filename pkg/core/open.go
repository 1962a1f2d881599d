package core

import (
	"go.uber.org/zap"

	"simplerdb/pkg/config"
	"simplerdb/pkg/storage"
)

// OpenConfigured opens the backend named by cfg.Storage and restores the
// database from it.
func OpenConfigured(cfg *config.Config, log *zap.Logger) (*Database, error) {
	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	db, err := Open(store, Options{
		Degree:         cfg.Tree.Degree,
		ResetOnCorrupt: cfg.Storage.OnCorrupt == config.OnCorruptReset,
	}, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return db, nil
}
