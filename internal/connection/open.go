package connection

import (
	"context"

	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/aanand-mishra/school-api/internal/storage/firestore"
	"github.com/aanand-mishra/school-api/internal/storage/sqlite"
)

// Open opens the backend selected by cfg.Driver. cfg is expected to be
// validated and normalized.
func Open(ctx context.Context, cfg Config) (storage.Store, error) {
	if cfg.Driver == DriverSQLite {
		db, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	fs, err := firestore.Open(ctx, firestore.Credentials{
		ProjectID:     cfg.ProjectID,
		PrivateKey:    cfg.PrivateKey,
		ClientEmail:   cfg.ClientEmail,
		DatabaseURL:   cfg.DatabaseURL,
		StorageBucket: cfg.StorageBucket,
		EmulatorHost:  cfg.EmulatorHost,
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}
