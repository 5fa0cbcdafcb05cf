package main

import (
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/internal"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
)

// Prints the decoded records of a badger directory, e.g.
//
//	go run ./tools -db ./data -prefix dm:
func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, dm:, group:, user:, exp:, list:)")
	limit := flag.Int("limit", 500, "Maximum number of rows")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	rows, err := storage.Inspect(db, *prefix, *limit)
	if err != nil {
		log.Fatal(err)
	}
	color.Cyan.Printf("%d key(s) under %q\n", len(rows), *prefix)
	internal.RenderInspectTable(os.Stdout, rows)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed writer leaves a log that needs truncating before a read-only open.
		if strings.Contains(err.Error(), "Log truncate required") {
			color.Yellow.Println("Truncating the value log before inspection")

			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
