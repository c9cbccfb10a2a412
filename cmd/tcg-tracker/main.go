// Command tcg-tracker wires the local store, repository factory and sync
// queue together and exposes a few maintenance commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tcadams/tcg-tracker/internal/config"
	"github.com/tcadams/tcg-tracker/internal/repository"
	"github.com/tcadams/tcg-tracker/internal/storage"
	"github.com/tcadams/tcg-tracker/internal/syncqueue"
)

// configUser supplies the configured user id as the authenticated owner.
type configUser struct {
	cfg *config.Config
}

func (u configUser) CurrentUserID() string {
	return u.cfg.Remote.UserID
}

// alwaysOnline is the default connectivity provider when no probe is
// configured; the queue still reacts to manual pause/resume.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".tcg-tracker"), nil
}

func run() error {
	backupDir := flag.String("backup-dir", "", "directory for database backups")
	backupPassword := flag.String("backup-password", "", "password for encrypted backup export")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return err
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "tracker.db")
	}
	kvPath := cfg.Storage.KVPath
	if kvPath == "" {
		kvPath = filepath.Join(dataDir, "tracker.json")
	}

	dbConfig := storage.DefaultConfig(dbPath)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	initialBackoff, err := cfg.GetInitialBackoff()
	if err != nil {
		return err
	}
	maxBackoff, err := cfg.GetMaxBackoff()
	if err != nil {
		return err
	}

	remote := syncqueue.NewHTTPRemote(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.RequestsPerSecond)
	queue, err := syncqueue.New(
		syncqueue.NewSQLiteStore(db.Conn()),
		remote,
		alwaysOnline{},
		nil,
		&syncqueue.Config{
			MaxRetries:     cfg.Remote.MaxRetries,
			InitialBackoff: initialBackoff,
			MaxBackoff:     maxBackoff,
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start sync queue: %w", err)
	}
	defer queue.Close()

	factory := repository.NewFactory(cfg, db.Conn(), kvPath, queue, configUser{cfg: cfg})

	ctx := context.Background()
	switch flag.Arg(0) {
	case "", "status":
		return printStatus(factory, queue)
	case "backup":
		return runBackup(dbPath, *backupDir, *backupPassword)
	case "reseed":
		return runReseed(ctx, factory, queue)
	case "rebuild-calendar":
		return runRebuildCalendar(ctx, factory)
	default:
		return fmt.Errorf("unknown command %q (expected status, backup, reseed or rebuild-calendar)", flag.Arg(0))
	}
}

func printStatus(factory *repository.Factory, queue *syncqueue.Service) error {
	kind, err := factory.Backend()
	if err != nil {
		return err
	}
	status := queue.Status()
	fmt.Printf("backend:    %s\n", kind)
	fmt.Printf("pending:    %d\n", status.Pending)
	fmt.Printf("processing: %t\n", status.Processing)
	fmt.Printf("paused:     %t\n", status.Paused)
	fmt.Printf("online:     %t\n", status.Online)
	return nil
}

func runBackup(dbPath, dir, password string) error {
	bm := storage.NewBackupManager(dbPath)
	if password != "" {
		path, err := bm.Export(dir, password)
		if err != nil {
			return err
		}
		fmt.Printf("encrypted backup written to %s\n", path)
		return nil
	}
	path, err := bm.Backup(dir)
	if err != nil {
		return err
	}
	fmt.Printf("backup written to %s\n", path)
	return nil
}

// runReseed pushes every local entity to the remote mirror, parents before
// children.
func runReseed(ctx context.Context, factory *repository.Factory, queue *syncqueue.Service) error {
	events, err := factory.Events()
	if err != nil {
		return err
	}
	decks, err := factory.Decks()
	if err != nil {
		return err
	}
	matches, err := factory.Matches()
	if err != nil {
		return err
	}

	allEvents, err := events.List(ctx, repository.EventFilter{})
	if err != nil {
		return err
	}
	allDecks, err := decks.List(ctx, repository.DeckFilter{IncludeArchived: true})
	if err != nil {
		return err
	}
	allMatches, err := matches.List(ctx, repository.MatchFilter{})
	if err != nil {
		return err
	}

	if err := queue.Reseed(ctx, allDecks, allEvents, allMatches); err != nil {
		return err
	}
	fmt.Printf("queued %d entities for sync\n", len(allDecks)+len(allEvents)+len(allMatches))
	return nil
}

func runRebuildCalendar(ctx context.Context, factory *repository.Factory) error {
	events, err := factory.Events()
	if err != nil {
		return err
	}
	matches, err := factory.Matches()
	if err != nil {
		return err
	}
	calendar, err := factory.Calendar()
	if err != nil {
		return err
	}

	allEvents, err := events.List(ctx, repository.EventFilter{})
	if err != nil {
		return err
	}
	allMatches, err := matches.List(ctx, repository.MatchFilter{})
	if err != nil {
		return err
	}

	if err := calendar.Rebuild(ctx, allEvents, allMatches); err != nil {
		return err
	}
	fmt.Println("calendar index rebuilt")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("tcg-tracker: %v", err)
	}
}
