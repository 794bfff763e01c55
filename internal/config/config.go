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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/textlayout"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Layout        LayoutConfig  `yaml:"layout"`
	Pager         PagerConfig   `yaml:"pager"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	// RecentProjects is the most-recently-opened list, newest first.
	RecentProjects []string `yaml:"recent_projects,omitempty"`
	// Autosave enables crash snapshots of the open project.
	Autosave bool `yaml:"autosave"`
}

// LayoutConfig mirrors the page grid. Zero values keep the built-in defaults.
type LayoutConfig struct {
	PageLines int            `yaml:"page_lines"`
	Widths    map[string]int `yaml:"widths,omitempty"` // keyed by element type, e.g. "dialogue"
}

type PagerConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
	CacheTTLS  int `yaml:"cache_ttl_s"`
}

type ExportConfig struct {
	Preset string `yaml:"preset"` // draft|print|web
	OutDir string `yaml:"out_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Autosave: true},
		Layout:        LayoutConfig{PageLines: pager.PageLines},
		Pager:         PagerConfig{DebounceMs: 400, CacheTTLS: 300},
		Export:        ExportConfig{Preset: "draft", OutDir: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath   = "GSW_CONFIG"
	EnvPageLines    = "GSW_PAGE_LINES"
	EnvDebounceMs   = "GSW_DEBOUNCE_MS"
	EnvExportPreset = "GSW_EXPORT_PRESET"
	EnvExportDir    = "GSW_EXPORT_DIR"
	EnvAutosave     = "GSW_AUTOSAVE"
	// Logging envs
	EnvLogLevel  = "GSW_LOG_LEVEL"
	EnvLogFormat = "GSW_LOG_FORMAT"
	EnvLogSource = "GSW_LOG_SOURCE"
	EnvLogFile   = "GSW_LOG_FILE"
)

// ConfigPath returns the per-user config file path. GSW_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScreenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScreenwriter")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscreenwriter")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "goscreenwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return loadPath(path, true)
}

// LoadFile is Load for an explicit path. Unlike Load, a missing file is an error.
func LoadFile(path string) (AppConfig, error) {
	return loadPath(path, false)
}

func loadPath(path string, optional bool) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Dump writes the effective configuration as YAML.
func Dump(w io.Writer, cfg AppConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// PagerLayout converts the layout section into a pager layout, keeping defaults for unset widths.
// Unknown width keys are ignored.
func (c LayoutConfig) PagerLayout() pager.Layout {
	l := pager.DefaultLayout()
	if c.PageLines > 0 {
		l.PageLines = c.PageLines
	}
	if len(c.Widths) > 0 {
		widths := make(map[domain.ElementType]int, len(l.Grid.Widths))
		for k, v := range l.Grid.Widths {
			widths[k] = v
		}
		for k, v := range c.Widths {
			t := domain.ElementType(strings.ToLower(strings.TrimSpace(k)))
			if t.Valid() && v > 0 {
				widths[t] = v
			}
		}
		l.Grid = textlayout.Grid{Widths: widths, LeadIns: l.Grid.LeadIns}
	}
	return l
}

// Debounce returns the edit debounce window.
func (c PagerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// CacheTTL returns how long memoised pagination results are kept.
func (c PagerConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// AddRecent moves path to the front of the recent list, keeping at most limit entries.
func (g *GeneralConfig) AddRecent(path string, limit int) {
	out := []string{path}
	for _, p := range g.RecentProjects {
		if p != path {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	g.RecentProjects = out
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if len(src.General.RecentProjects) > 0 {
		dst.General.RecentProjects = append([]string(nil), src.General.RecentProjects...)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.Autosave = src.General.Autosave
	if src.Layout.PageLines > 0 {
		dst.Layout.PageLines = src.Layout.PageLines
	}
	if len(src.Layout.Widths) > 0 {
		dst.Layout.Widths = make(map[string]int, len(src.Layout.Widths))
		for k, v := range src.Layout.Widths {
			dst.Layout.Widths[k] = v
		}
	}
	if src.Pager.DebounceMs > 0 {
		dst.Pager.DebounceMs = src.Pager.DebounceMs
	}
	if src.Pager.CacheTTLS > 0 {
		dst.Pager.CacheTTLS = src.Pager.CacheTTLS
	}
	if p := strings.ToLower(strings.TrimSpace(src.Export.Preset)); p != "" {
		dst.Export.Preset = p
	}
	if d := strings.TrimSpace(src.Export.OutDir); d != "" {
		dst.Export.OutDir = d
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvPageLines)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Layout.PageLines = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Pager.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPreset)); v != "" {
		cfg.Export.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosave)); v != "" {
		cfg.General.Autosave = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"layout.page_lines": EnvPageLines,
	"pager.debounce_ms": EnvDebounceMs,
	"export.preset":     EnvExportPreset,
	"export.out_dir":    EnvExportDir,
	"general.autosave":  EnvAutosave,
	"logging.level":     EnvLogLevel,
	"logging.format":    EnvLogFormat,
	"logging.source":    EnvLogSource,
	"logging.file":      EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
