package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/async"
)

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paystub.yaml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "confidence_floor") {
		t.Fatalf("default config missing ocr settings:\n%s", b)
	}

	rootCmd.SetArgs([]string{"config", "init", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error when the file exists without --force")
	}
	configForce = false
}

func TestNewProvidersRegistersAll(t *testing.T) {
	var names []string
	for _, p := range newProviders(common.DefaultConfig().OCR, slog.Default()) {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	want := []string{constants.ProviderDocIntel, constants.ProviderVision, constants.ProviderPDFText, constants.ProviderTesseract}
	sort.Strings(want)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("providers = %v, want %v", names, want)
	}
}

func TestNewAppInMemory(t *testing.T) {
	cfg := common.DefaultConfig()
	a, err := newApp(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if a.archive != nil || a.redis != nil {
		t.Fatal("expected no archive and no redis without configuration")
	}
	if len(a.readiness()) != 0 {
		t.Fatal("expected no readiness checks")
	}
	q, err := a.newQueue()
	if err != nil {
		t.Fatalf("newQueue: %v", err)
	}
	defer q.Shutdown(context.Background())
	if _, ok := q.(*async.ProcessorQueue); !ok {
		t.Fatalf("queue = %T, want *async.ProcessorQueue", q)
	}
}

func TestNewAppWithSQLiteArchive(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "archive.db")
	a, err := newApp(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if a.archive == nil {
		t.Fatal("expected an archive")
	}
	if len(a.readiness()) != 1 {
		t.Fatalf("readiness checks = %d, want 1", len(a.readiness()))
	}
	if _, err := a.archive.List(context.Background(), 5); err != nil {
		t.Fatalf("list: %v", err)
	}
}
