package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"elog/internal/config"
	"elog/internal/domain/services"
	"elog/internal/repository/postgres"
	"elog/internal/service"
)

// logbookFixture is the YAML shape of one seeded logbook.
type logbookFixture struct {
	Name   string `yaml:"name"`
	Shifts []struct {
		Name string `yaml:"name"`
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"shifts"`
	Tags []string `yaml:"tags"`
}

type fixtureFile struct {
	Logbooks []logbookFixture `yaml:"logbooks"`
}

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed logbooks")
	fixtures := flag.String("fixtures", "cmd/seed/fixtures/logbooks.yaml", "Logbook fixture file")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	raw, err := os.ReadFile(*fixtures)
	if err != nil {
		log.Fatalf("Failed to read fixture file: %v", err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		log.Fatalf("Failed to parse fixture file: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	logbookService := service.NewLogbookService(postgres.NewLogbookRepository(repoConfig), logger)

	for _, fixture := range file.Logbooks {
		if err := seedLogbook(ctx, logbookService, fixture); err != nil {
			log.Fatalf("Failed to seed logbook %q: %v", fixture.Name, err)
		}
	}
	log.Printf("Seeded %d logbooks", len(file.Logbooks))
}

func seedLogbook(ctx context.Context, svc services.LogbookService, fixture logbookFixture) error {
	logbook, err := svc.CreateLogbook(ctx, &services.CreateLogbookRequest{Name: fixture.Name})
	if err != nil {
		return err
	}
	log.Printf("  logbook %q (%s)", logbook.Name, logbook.ID)

	for _, shift := range fixture.Shifts {
		if _, err := svc.AddShift(ctx, logbook.ID, &services.AddShiftRequest{
			Name: shift.Name,
			From: shift.From,
			To:   shift.To,
		}); err != nil {
			return err
		}
	}
	for _, tag := range fixture.Tags {
		if _, err := svc.AddTag(ctx, logbook.ID, &services.AddTagRequest{Name: tag}); err != nil {
			return err
		}
	}
	return nil
}

// runSchema creates the tables and indexes when they do not exist yet.
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Logbooks),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				logbook_id TEXT NOT NULL REFERENCES %s(id),
				name TEXT NOT NULL,
				from_time TEXT NOT NULL,
				to_time TEXT NOT NULL,
				UNIQUE (logbook_id, name)
			)`, tables.Shifts, tables.Logbooks),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				logbook_id TEXT NOT NULL REFERENCES %s(id),
				name TEXT NOT NULL,
				UNIQUE (logbook_id, name)
			)`, tables.Tags, tables.Logbooks),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL DEFAULT '',
				in_use BOOLEAN NOT NULL DEFAULT FALSE,
				payload BYTEA NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Attachments),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				logbook_ids TEXT[] NOT NULL,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				tag_ids TEXT[] NOT NULL DEFAULT '{}',
				attachment_ids TEXT[] NOT NULL DEFAULT '{}',
				follow_up_ids TEXT[] NOT NULL DEFAULT '{}',
				reference_ids TEXT[] NOT NULL DEFAULT '{}',
				superseded_by TEXT,
				summarize_shift_id TEXT,
				summarize_date TIMESTAMPTZ,
				origin_id TEXT,
				logged_at TIMESTAMPTZ NOT NULL,
				event_at TIMESTAMPTZ NOT NULL,
				logged_by_first TEXT NOT NULL DEFAULT '',
				logged_by_last TEXT NOT NULL DEFAULT '',
				logged_by_email TEXT NOT NULL DEFAULT ''
			)`, tables.Entries),
		// Import idempotence hangs off this partial unique index.
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_origin_id_uq
			ON %s (origin_id) WHERE origin_id IS NOT NULL`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_superseded_by_idx
			ON %s (superseded_by) WHERE superseded_by IS NOT NULL`, tables.Entries, tables.Entries),
		// Array-containment lookups for the reference cascade and search.
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_logbook_ids_idx
			ON %s USING GIN (logbook_ids)`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tag_ids_idx
			ON %s USING GIN (tag_ids)`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_reference_ids_idx
			ON %s USING GIN (reference_ids)`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_follow_up_ids_idx
			ON %s USING GIN (follow_up_ids)`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_logged_at_idx
			ON %s (logged_at DESC, id DESC)`, tables.Entries, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_event_at_idx
			ON %s (event_at DESC, id DESC)`, tables.Entries, tables.Entries),
	}

	for _, statement := range statements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// dropAllTables removes everything, children before parents.
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Entries, tables.Attachments, tables.Shifts, tables.Tags, tables.Logbooks} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
