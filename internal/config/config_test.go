package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FNT_ALIGN_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.Address != ":50061" || cfg.Server.MetricsAddress != ":2113" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Server.GracefulTimeout != 10*time.Second {
		t.Fatalf("unexpected graceful timeout %v", cfg.Server.GracefulTimeout)
	}
	if cfg.Alignment.MismatchPolicy != "truncate" || cfg.Alignment.ResidualThreshold != 0.001 {
		t.Fatalf("unexpected alignment defaults: %+v", cfg.Alignment)
	}
	if cfg.HasSession() {
		t.Fatalf("expected no session by default")
	}
}

func TestLoadSessionResolvesPaths(t *testing.T) {
	path := writeConfig(t, `
alignment:
  mismatchPolicy: abort
  residualThreshold: 0.002
session:
  name: FNT103
  reference:
    format: csv
    path: ephys/events.csv
    timestampColumn: global_timestamp
    filter:
      stream_name: PXIe-6341
      line: "4"
  target:
    format: setclear
    setPath: harp/set.csv
    clearPath: /abs/clear.csv
  remap:
    - input: sound_events.csv
      output: sound_events_ephys.csv
      columns:
        - name: Time
          as: ephys_timestamp
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dir := filepath.Dir(path)

	if cfg.Alignment.MismatchPolicy != "abort" || cfg.Alignment.ResidualThreshold != 0.002 {
		t.Fatalf("unexpected alignment: %+v", cfg.Alignment)
	}
	if got := cfg.Session.Reference.Path; got != filepath.Join(dir, "ephys/events.csv") {
		t.Fatalf("reference path not resolved: %s", got)
	}
	if got := cfg.Session.Reference.Filter["line"]; got != "4" {
		t.Fatalf("unexpected filter: %v", cfg.Session.Reference.Filter)
	}
	if got := cfg.Session.Target.ClearPath; got != "/abs/clear.csv" {
		t.Fatalf("absolute path changed: %s", got)
	}
	if len(cfg.Session.Remap) != 1 || cfg.Session.Remap[0].Columns[0].As != "ephys_timestamp" {
		t.Fatalf("unexpected remap jobs: %+v", cfg.Session.Remap)
	}
	if got := cfg.Session.Remap[0].Output; got != filepath.Join(dir, "sound_events_ephys.csv") {
		t.Fatalf("remap output not resolved: %s", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FNT_ALIGN_CONFIG", "")
	t.Setenv("FNT_ALIGN_SERVER_ADDRESS", ":6000")
	t.Setenv("FNT_ALIGN_LOG_FORMAT", "json")
	t.Setenv("FNT_ALIGN_STORE_DIR", "/tmp/models")
	t.Setenv("FNT_ALIGN_RESIDUAL_THRESHOLD", "0.5")
	t.Setenv("FNT_ALIGN_MISMATCH_POLICY", "abort")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || !cfg.Logging.JSON || cfg.Store.Dir != "/tmp/models" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Alignment.ResidualThreshold != 0.5 || cfg.Alignment.MismatchPolicy != "abort" {
		t.Fatalf("alignment overrides not applied: %+v", cfg.Alignment)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := map[string]string{
		"policy":    "alignment: {mismatchPolicy: resync}\n",
		"threshold": "alignment: {residualThreshold: -1}\n",
		"format":    "session: {name: s, reference: {format: bin, path: a}, target: {format: csv, path: b}}\n",
		"setclear":  "session: {name: s, reference: {format: csv, path: a}, target: {format: setclear, setPath: b}}\n",
		"edf rate":  "session: {name: s, reference: {format: edf, path: a}, target: {format: csv, path: b}}\n",
		"remap":     "session: {name: s, reference: {format: csv, path: a}, target: {format: csv, path: b}, remap: [{input: x}]}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
