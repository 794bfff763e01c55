/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"goscreenwriter/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Layout.PageLines != 54 || cfg.Pager.DebounceMs != 400 || cfg.Export.Preset != "draft" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFileMergesSections(t *testing.T) {
	p := writeConfig(t, `
config_version: 1
layout:
  page_lines: 50
  widths:
    dialogue: 30
pager:
  debounce_ms: 250
export:
  preset: PRINT
  out_dir: out
logging:
  level: DEBUG
  format: json
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Layout.PageLines != 50 || cfg.Layout.Widths["dialogue"] != 30 {
		t.Fatalf("layout not merged: %+v", cfg.Layout)
	}
	if cfg.Pager.DebounceMs != 250 || cfg.Pager.CacheTTLS != 300 {
		t.Fatalf("pager not merged: %+v", cfg.Pager)
	}
	if cfg.Export.Preset != "print" || cfg.Export.OutDir != "out" {
		t.Fatalf("export not merged: %+v", cfg.Export)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not merged: %+v", cfg.Logging)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
	p := writeConfig(t, "layout: [unclosed")
	if _, err := LoadFile(p); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, "export:\n  preset: web\n"))
	t.Setenv(EnvExportPreset, "Print")
	t.Setenv(EnvPageLines, "48")
	t.Setenv(EnvAutosave, "off")
	t.Setenv(EnvLogSource, "yes")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Preset != "print" || cfg.Layout.PageLines != 48 || cfg.General.Autosave || !cfg.Logging.Source {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if env, ok := EnvOverrideFor("export.preset"); !ok || env != EnvExportPreset {
		t.Fatalf("EnvOverrideFor(export.preset) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file is not overridden")
	}
	if _, ok := EnvOverrideFor("no.such.key"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "nested", "config.yaml"))
	cfg := Defaults()
	cfg.General.AddRecent("/a", 5)
	cfg.Layout.Widths = map[string]int{"action": 58}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.General.RecentProjects) != 1 || got.General.RecentProjects[0] != "/a" || got.Layout.Widths["action"] != 58 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	if err := Dump(&buf, Defaults()); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"page_lines: 54", "debounce_ms: 400", "preset: draft", "level: info"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestPagerLayout(t *testing.T) {
	lc := LayoutConfig{PageLines: 40, Widths: map[string]int{"Dialogue": 28, "bogus": 10, "action": 0}}
	l := lc.PagerLayout()
	if l.PageLines != 40 {
		t.Fatalf("PageLines = %d", l.PageLines)
	}
	if got := l.Grid.Width(domain.Dialogue); got != 28 {
		t.Fatalf("dialogue width = %d, want 28", got)
	}
	if got := l.Grid.Width(domain.Action); got != 60 {
		t.Fatalf("action width = %d, want default 60", got)
	}
	if got := (LayoutConfig{}).PagerLayout().PageLines; got != 54 {
		t.Fatalf("zero config PageLines = %d", got)
	}
}

func TestPagerDurations(t *testing.T) {
	pc := PagerConfig{DebounceMs: 250, CacheTTLS: 2}
	if pc.Debounce() != 250*time.Millisecond || pc.CacheTTL() != 2*time.Second {
		t.Fatalf("durations: %v %v", pc.Debounce(), pc.CacheTTL())
	}
}

func TestAddRecent(t *testing.T) {
	var g GeneralConfig
	g.AddRecent("a", 2)
	g.AddRecent("b", 2)
	g.AddRecent("a", 2)
	g.AddRecent("c", 2)
	if len(g.RecentProjects) != 2 || g.RecentProjects[0] != "c" || g.RecentProjects[1] != "a" {
		t.Fatalf("recent = %v", g.RecentProjects)
	}
}
