package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/mongodb"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one push/pull cycle against the remote store and checkpoint the result",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	remote, closeRemote, err := openRemote(ctx, s.cfg, s.log)
	if err != nil {
		return err
	}
	defer closeRemote()
	if remote == nil {
		return errors.New("remote.driver is none, nothing to sync with")
	}

	reconciler := reconciliation.NewReconciler(s.cfg.Local.OwnerID, s.workspace, s.localStore, remote, s.log)
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.Sync.CycleTimeout)
	defer cancel()

	result, err := reconciler.RunCycle(cycleCtx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if err := reconciler.Checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "pushed %d products, %d documents, %d ledgers in %s\n",
		result.Pushed.Products, result.Pushed.Documents, result.Pushed.Ledgers, result.Duration)
	fmt.Fprintf(out, "merged ledgers: %+v\n", result.Merge.Ledgers)
	return nil
}

func openRemote(ctx context.Context, cfg *config.Config, log *zap.Logger) (reconciliation.Store, func(), error) {
	switch cfg.Remote.Driver {
	case config.RemoteDriverPostgres:
		db, err := persistence.NewDatabase(&cfg.Remote.Database)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewSnapshotRepository(db.DB), func() { _ = db.Close() }, nil
	case config.RemoteDriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.Remote.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(context.Background()); err != nil {
				log.Warn("Error closing MongoDB client", zap.Error(err))
			}
		}
		return mongodb.NewRemoteStore(client.Database()), closeFn, nil
	}
	return nil, func() {}, nil
}
