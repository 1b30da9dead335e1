package cli

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/archive"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// dependencies are the long-lived resources a command needs.
type dependencies struct {
	store   *storage.Storage
	mongo   *mongo.Client
	service *service.ReconcileService
	logger  *slog.Logger
}

// open connects storage and, when wanted and configured, the report archive.
// An unreachable archive is logged and skipped.
func (a *app) open(ctx context.Context, withArchive bool) (*dependencies, error) {
	store, err := storage.NewStorage(a.cfg.Storage.DatabasePath, storage.WithLogger(a.logger.With("system", "storage")))
	if err != nil {
		return nil, err
	}
	deps := &dependencies{store: store, logger: a.logger}

	var archiver archive.Archiver
	if withArchive && a.cfg.Archive.Enabled() {
		if ctx == nil {
			ctx = context.Background()
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := archive.Connect(connectCtx, a.cfg.Archive.MongoURI, a.logger.With("system", "archive"))
		cancel()
		if err != nil {
			a.logger.Warn("Report archive unavailable, continuing without it", "error", err)
		} else {
			deps.mongo = client
			archiver = archive.NewMongoArchive(archive.NewMongoProvider(client, a.cfg.Archive.Database))
		}
	}

	deps.service = service.NewReconcileService(store, archiver, a.cfg.Reconciliation.Options(), a.logger.With("system", "service"))
	return deps, nil
}

// Close releases every resource opened by open.
func (d *dependencies) Close() {
	if d.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.mongo.Disconnect(ctx); err != nil {
			d.logger.Warn("Failed to disconnect archive", "error", err)
		}
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("Failed to close storage", "error", err)
	}
}
