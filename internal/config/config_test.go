package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.OperationTimeout != 5*time.Second {
		t.Fatalf("expected default operation timeout 5s, got %v", cfg.OperationTimeout)
	}
	if cfg.ConflictRetries != 3 {
		t.Fatalf("expected default conflict retries 3, got %d", cfg.ConflictRetries)
	}
	if cfg.InvoicingWorkers != 8 {
		t.Fatalf("expected default invoicing workers 8, got %d", cfg.InvoicingWorkers)
	}
	if cfg.InvoiceNumberingRange != 8 {
		t.Fatalf("expected default numbering range 8, got %d", cfg.InvoiceNumberingRange)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("INVOICE_BACKFILL_INTERVAL", "30s")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.InvoiceBackfillInterval != 30*time.Second {
		t.Fatalf("expected backfill interval 30s, got %v", cfg.InvoiceBackfillInterval)
	}
}

func TestConfig_Origins(t *testing.T) {
	cfg := Config{CORSOrigins: "http://localhost:5173, http://127.0.0.1:5173 ,,"}
	origins := cfg.Origins()
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %v", origins)
	}
	if origins[0] != "http://localhost:5173" || origins[1] != "http://127.0.0.1:5173" {
		t.Fatalf("unexpected origins %v", origins)
	}
}
