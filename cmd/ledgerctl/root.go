package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath     string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Inspect the customer credit ledgers stored on this device",
	Long: `ledgerctl reads the local SQLite store used by the ledger server.

Settings come from config.toml and FM_* environment variables, like the
server. Stop the server before running commands that write (sync).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "local store path (overrides local.db_path)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(syncCmd)
}

// session is a workspace restored from the local store
type session struct {
	cfg        *config.Config
	log        *zap.Logger
	local      *persistence.Database
	ledgers    *ledgerapp.Store
	workspace  *reconciliation.Workspace
	localStore reconciliation.Store
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if dbPath != "" {
		cfg.Local.DBPath = dbPath
	}

	log := zap.NewNop()
	if verbose {
		log, err = logger.New(&logger.Config{Level: "debug", Format: "console", Output: "stderr"})
		if err != nil {
			return nil, err
		}
	}

	local, err := persistence.OpenLocal(cfg.Local.DBPath)
	if err != nil {
		return nil, err
	}

	ownerID := cfg.Local.OwnerID
	s := &session{
		cfg:        cfg,
		log:        log,
		local:      local,
		ledgers:    ledgerapp.NewStore(ownerID, nil, log),
		localStore: persistence.NewSnapshotRepository(local.DB),
	}
	s.workspace = &reconciliation.Workspace{
		Ledgers:   s.ledgers,
		Catalog:   catalogapp.NewStockService(ownerID, log),
		Documents: documentapp.NewDocumentStore(),
		Profile:   profileapp.NewService(ownerID),
	}

	snap, err := s.localStore.FetchAll(ctx, ownerID)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("read local store: %w", err)
	}
	s.workspace.Load(snap)
	log.Debug("Workspace restored",
		zap.Int("ledgers", len(snap.Ledgers)),
		zap.Int("documents", len(snap.Documents)),
	)
	return s, nil
}

func (s *session) close() {
	if err := s.local.Close(); err != nil {
		s.log.Warn("Error closing local store", zap.Error(err))
	}
	_ = s.log.Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
