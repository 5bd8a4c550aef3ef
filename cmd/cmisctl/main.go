// cmisctl is a small diagnostic tool: it connects to the repository selected
// by the CMIS_* environment variables and runs a create/lock/update/unlock
// round trip, printing each step.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/cmis-client/pkg/cmisclient"
	"github.com/tendant/cmis-client/pkg/cmisclient/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration", "err", err)
		os.Exit(1)
	}
	client, err := cfg.BuildClient(logger)
	if err != nil {
		logger.Error("client setup", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, client); err != nil {
		logger.Error("smoke test failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func run(ctx context.Context, client *cmisclient.Client) error {
	info, err := client.RepositoryInfo(ctx)
	if err != nil {
		return fmt.Errorf("repository info: %w", err)
	}
	fmt.Println("repository:", info.RepositoryID)
	fmt.Println("root folder:", info.RootFolderID)

	identificatie := "SMOKE-" + uuid.NewString()
	doc, err := client.CreateDocument(ctx, map[string]any{
		"identificatie":   identificatie,
		"bronorganisatie": "000000000",
		"titel":           "cmisctl smoke test",
		"bestandsnaam":    "smoke.txt",
	}, strings.NewReader("smoke test content"), "smoke.txt")
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Println("created:", doc.UUID())

	lock := uuid.NewString()
	if err := client.LockDocument(ctx, doc.UUID(), lock); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	fmt.Println("locked")

	if _, err := client.UpdateDocument(ctx, doc.UUID(), lock, map[string]any{
		"beschrijving": "updated by cmisctl",
	}, nil, ""); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Println("updated")

	latest, err := client.UnlockDocument(ctx, doc.UUID(), lock, false)
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	fmt.Println("unlocked, version:", latest.VersionLabel())

	if err := client.DeleteDocument(ctx, doc.UUID()); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	fmt.Println("cleaned up")
	return nil
}
