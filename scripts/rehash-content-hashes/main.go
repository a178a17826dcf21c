// Command rehash-content-hashes recomputes content_hash for every snippet
// in the index. Run this after restoring a saved-code directory from backup
// or after upgrading from a build that predates content hashing (those rows
// carry an empty hash and are never verified on read).
//
// Usage:
//
//	KAISEKI_SAVED_DIR=saved_code KAISEKI_DB_PATH=kaiseki.db go run ./scripts/rehash-content-hashes
//
// The script reads every indexed snippet's body from disk, recomputes the
// hash with the current algorithm, and updates any rows where the stored
// hash differs. It prints the number of rows fixed and exits.
//
// Safe to run multiple times. Once all hashes match it reports 0 updates.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/ashita-ai/kaiseki/internal/integrity"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	dir := os.Getenv("KAISEKI_SAVED_DIR")
	if dir == "" {
		dir = "saved_code"
	}
	dbPath := os.Getenv("KAISEKI_DB_PATH")
	if dbPath == "" {
		dbPath = "kaiseki.db"
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)", dbPath))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT filename, content_hash FROM snippets ORDER BY filename`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	type row struct {
		filename string
		stored   string
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.filename, &r.stored); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	fixed, missing := 0, 0
	for _, r := range all {
		body, err := os.ReadFile(filepath.Join(dir, r.filename))
		if os.IsNotExist(err) {
			log.Printf("missing on disk, skipping: %s", r.filename)
			missing++
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", r.filename, err)
		}
		want := integrity.ContentHash(r.filename, body)
		if want == r.stored {
			continue
		}
		if _, err := db.Exec(`UPDATE snippets SET content_hash = ? WHERE filename = ?`, want, r.filename); err != nil {
			return fmt.Errorf("update %s: %w", r.filename, err)
		}
		fixed++
	}

	fmt.Printf("checked %d snippets, fixed %d, %d missing on disk\n", len(all), fixed, missing)
	return nil
}
