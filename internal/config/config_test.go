package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.StorageDriver != "sqlite" || cfg.SQLitePath != "./booktrack.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LookupTimeout != 8*time.Second {
		t.Fatalf("expected 8s lookup timeout, got %s", cfg.LookupTimeout)
	}
	if cfg.DebounceWindow != 2500*time.Millisecond {
		t.Fatalf("expected 2500ms debounce window, got %s", cfg.DebounceWindow)
	}
	if cfg.ReportArchive {
		t.Fatalf("report archive must default to off")
	}
	if cfg.LookupURL != DefaultLookupURL || cfg.BlobDriver != "fs" || cfg.SnapshotKey != "booktrack/state.json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOOKTRACK_STORAGE_DRIVER", "Redis")
	t.Setenv("BOOKTRACK_REDIS_DB", "3")
	t.Setenv("BOOKTRACK_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("BOOKTRACK_DEBOUNCE_WINDOW", "1s")
	t.Setenv("BOOKTRACK_LOG_FORMAT", "JSON")
	t.Setenv("BOOKTRACK_REPORT_ARCHIVE", "1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "redis" || cfg.RedisDB != 3 || !cfg.BlobS3PathStyle {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DebounceWindow != time.Second || cfg.LogFormat != "json" || !cfg.ReportArchive {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BOOKTRACK_REDIS_DB":           "three",
		"BOOKTRACK_BLOB_S3_PATH_STYLE": "maybe",
		"BOOKTRACK_LOOKUP_TIMEOUT":     "soon",
		"BOOKTRACK_DEBOUNCE_WINDOW":    "-1s",
		"BOOKTRACK_REPORT_ARCHIVE":     "often",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
