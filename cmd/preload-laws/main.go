package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lawcite-backend/config"
	"lawcite-backend/service"
	"lawcite-backend/storage"

	"github.com/joho/godotenv"
)

func main() {
	file := flag.String("file", "", "file with one law ID per line (# starts a comment)")
	useMST := flag.Bool("mst", false, "treat the entries as MST serial numbers instead of law IDs")
	delay := flag.Duration("delay", 2*time.Second, "pause between law API calls")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file found, using environment variables")
	}

	ids := flag.Args()
	if *file != "" {
		fromFile, err := readIDs(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		log.Fatal("No law IDs given. Usage: preload-laws [-file ids.txt] [-mst] [id ...]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archive, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Printf("Warning: Failed to initialize storage: %v. Payloads will not be archived.", err)
		archive = nil
	}

	lawService, err := service.NewLawServiceFromConfig(ctx, cfg, archive)
	if err != nil {
		log.Fatalf("Failed to initialize law service: %v", err)
	}
	defer lawService.Close()

	loaded := 0
	for i, id := range ids {
		if ctx.Err() != nil {
			log.Println("Interrupted")
			break
		}

		log.Printf("\n📄 [%d/%d] Loading %s", i+1, len(ids), id)

		var summary string
		if *useMST {
			summary = lawService.LoadLawByID(ctx, "", id)
		} else {
			summary = lawService.LoadLawByID(ctx, id, "")
		}

		if summary == service.MsgLoadNotFound {
			log.Printf("   ❌ %s", summary)
		} else {
			loaded++
			for _, line := range strings.Split(summary, "\n") {
				log.Printf("   %s", line)
			}
		}

		// Rate limiting
		if i < len(ids)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(*delay):
			}
		}
	}

	fmt.Printf("\n✅ Preload complete: %d of %d laws loaded\n", loaded, len(ids))
}

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, scanner.Err()
}
