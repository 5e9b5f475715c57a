// Command camcheck is a diagnostic tool: it fetches one snapshot from
// every active camera and reports which ones are unreachable, without
// touching the archive or running detection.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/open-climate-tech/firecam/internal/config"
	"github.com/open-climate-tech/firecam/internal/imagesource"
	"github.com/open-climate-tech/firecam/internal/store"
)

func main() {
	settingsPath := flag.String("settings", "settings.json", "path to the JSON settings file")
	typeFilter := flag.String("restrictType", "", "restrict to a single camera type (fixed|ptz)")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		log.Fatalf("camcheck: %v", err)
	}

	db, err := sql.Open("postgres", settings.DSN())
	if err != nil {
		log.Fatalf("camcheck: open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("camcheck: ping database: %v", err)
	}
	st := store.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cameras, err := st.Cameras.GetActiveCameras(ctx, *typeFilter)
	if err != nil {
		log.Fatalf("camcheck: list cameras: %v", err)
	}

	fetcher := imagesource.NewHTTPFetcher()
	failures := 0
	for _, cam := range cameras {
		reqCtx, reqCancel := context.WithTimeout(ctx, 15*time.Second)
		data, err := fetcher.FetchSnapshot(reqCtx, cam.URL)
		reqCancel()
		if err != nil {
			failures++
			fmt.Printf("FAIL  %-36s %-6s %s\n", cam.ID, cam.Type, err)
			continue
		}
		fmt.Printf("OK    %-36s %-6s %d bytes\n", cam.ID, cam.Type, len(data))
	}

	fmt.Printf("\n%d cameras checked, %d failed\n", len(cameras), failures)
	if failures > 0 {
		os.Exit(1)
	}
}
