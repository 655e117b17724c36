package loader

import (
	"context"
	"fmt"
	"log"

	"barinv/database"
	"barinv/parsers"

	"github.com/jmoiron/sqlx"
)

// SeedStatus は起動時シードの結果です。
type SeedStatus string

const (
	SeedSeeded   SeedStatus = "seeded"
	SeedSkipped  SeedStatus = "skipped"
	SeedNotEmpty SeedStatus = "not_empty"
)

type SeedOptions struct {
	Path     string
	Encoding string
	Skip     bool
	Locker   SeedLocker
}

type SeedResult struct {
	Status SeedStatus
	Rows   int
}

// InitDatabase はデータベーススキーマを適用します。
func InitDatabase(ctx context.Context, db *sqlx.DB) error {
	log.Println("Applying database schema...")
	if err := database.ApplySchema(ctx, db); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Println("Schema applied successfully.")
	return nil
}

// SeedIfEmpty loads the seed file into an empty items table. It is a no-op
// when opts.Skip is set or the table already has rows. The file is parsed in
// full before anything is written, and all rows go in one transaction.
func SeedIfEmpty(ctx context.Context, db *sqlx.DB, opts SeedOptions) (result SeedResult, err error) {
	if opts.Skip {
		log.Println("SKIP_SEED is set, skipping seed.")
		return SeedResult{Status: SeedSkipped}, nil
	}

	locker := opts.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	unlock, err := locker.Lock(ctx)
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to acquire seed lock: %w", err)
	}
	defer unlock()

	count, err := database.CountItems(ctx, db)
	if err != nil {
		return SeedResult{}, err
	}
	if count > 0 {
		log.Printf("Items table has %d rows, skipping seed.", count)
		return SeedResult{Status: SeedNotEmpty}, nil
	}

	log.Printf("Loading seed file %s...", opts.Path)
	items, err := parsers.ParseSeedFile(opts.Path, opts.Encoding)
	if err != nil {
		return SeedResult{}, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("Rolling back seed due to error: %v", err)
			tx.Rollback()
		} else {
			err = tx.Commit()
			if err != nil {
				result = SeedResult{}
				err = fmt.Errorf("failed to commit seed: %w", err)
			}
		}
	}()

	// Another instance may have seeded between the first count and BEGIN.
	count, err = database.CountItems(ctx, tx)
	if err != nil {
		return SeedResult{}, err
	}
	if count > 0 {
		log.Printf("Items table was seeded concurrently (%d rows), skipping.", count)
		return SeedResult{Status: SeedNotEmpty}, nil
	}

	if err = database.InsertItemsInTx(ctx, tx, items); err != nil {
		return SeedResult{}, fmt.Errorf("failed to seed items: %w", err)
	}

	log.Printf("Seeded %d items from %s", len(items), opts.Path)
	return SeedResult{Status: SeedSeeded, Rows: len(items)}, nil
}
