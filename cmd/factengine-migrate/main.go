package main

import (
	"context"
	"flag"
	"log"

	"github.com/cuemby/factengine/pkg/storage"
)

var (
	srcDir = flag.String("src-dir", "", "Source store directory (BoltDB-backed); empty uses an empty in-memory store")
	dstDir = flag.String("dst-dir", "", "Destination store directory (BoltDB-backed); empty uses an in-memory store")
	dryRun = flag.Bool("dry-run", false, "Count envelopes that would be copied without writing them")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("factengine store migration tool")
	log.Println("================================")

	if *dstDir == "" && !*dryRun {
		log.Fatal("--dst-dir is required unless --dry-run is set")
	}

	src, err := openStore(*srcDir)
	if err != nil {
		log.Fatalf("failed to open source store: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	envelopes, err := src.All(ctx)
	if err != nil {
		log.Fatalf("failed to enumerate source store: %v", err)
	}
	log.Printf("found %d facts in source store", len(envelopes))

	if *dryRun {
		log.Println("dry run: no changes made")
		return
	}

	dst, err := openStore(*dstDir)
	if err != nil {
		log.Fatalf("failed to open destination store: %v", err)
	}
	defer dst.Close()

	saved, err := dst.Save(ctx, envelopes)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Printf("✓ copied %d new facts (%d already present)", len(saved), len(envelopes)-len(saved))
	log.Println("✓ migration completed successfully")
}

func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewBoltStore(dir)
}
