/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetDraft PresetName = "draft"
	PresetPrint PresetName = "print"
	PresetWeb   PresetName = "web"
)

// Supported batch formats.
const (
	FormatPDF  = "pdf"
	FormatPNG  = "png"
	FormatText = "txt"
)

// ParsePreset maps a config or flag value onto a preset; unknown names are an error.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetDraft, PresetPrint, PresetWeb:
		return p, nil
	case "":
		return PresetDraft, nil
	default:
		return "", fmt.Errorf("unknown export preset %q", s)
	}
}

// BatchOptions controls batch export across multiple formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it will be created under <project>/exports/<preset>/.
//   - PDF and text are single files named after the screenplay title.
//   - PNG previews are page-NNN.png inside a png/ subfolder.
type BatchOptions struct {
	Preset    PresetName
	Formats   []string // allowed: pdf, png, txt; empty means preset defaults
	Layout    pager.Layout
	TitlePage *bool  // when set, overrides the preset's default
	OutDir    string // base directory for outputs (created per preset if relative)
}

// BatchExport paginates the screenplay once and runs the requested formats concurrently.
// It returns the written files sorted by path.
func BatchExport(ctx context.Context, ph *storage.ProjectHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, errors.New("project handle is nil")
	}
	if opt.Preset == "" {
		opt.Preset = PresetDraft
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	seen := make(map[string]bool, len(formats))
	var normalized []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatPDF, FormatPNG, FormatText:
		default:
			return nil, fmt.Errorf("unknown format: %s", f)
		}
		if !seen[f] {
			seen[f] = true
			normalized = append(normalized, f)
		}
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.Root, storage.ExportsDirName, baseOut)
	}
	titlePage := presetTitlePage(opt.Preset)
	if opt.TitlePage != nil {
		titlePage = *opt.TitlePage
	}

	l := applog.WithOperation(applog.WithComponent("export"), "batch").With(
		slog.String("preset", string(opt.Preset)),
		slog.String("out", baseOut),
	)
	pages := opt.Layout.Paginate(ph.Screenplay.Elements)
	stem := slug(ph.Screenplay.Title)

	var (
		mu    sync.Mutex
		paths []string
	)
	add := func(p ...string) {
		mu.Lock()
		paths = append(paths, p...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range normalized {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch f {
			case FormatPDF:
				p, err := exportPDF(ph, pages, filepath.Join(baseOut, stem+".pdf"), PDFOptions{Layout: opt.Layout, TitlePage: titlePage})
				if err != nil {
					return fmt.Errorf("pdf: %w", err)
				}
				add(p)
			case FormatPNG:
				ps, err := exportPNGPages(ph, pages, filepath.Join(baseOut, FormatPNG), PNGOptions{Layout: opt.Layout, PageBorder: opt.Preset == PresetWeb})
				if err != nil {
					return fmt.Errorf("png: %w", err)
				}
				add(ps...)
			case FormatText:
				p, err := exportText(ph, pages, filepath.Join(baseOut, stem+".txt"), opt.Layout)
				if err != nil {
					return fmt.Errorf("txt: %w", err)
				}
				add(p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Error("batch export failed", slog.Any("err", err))
		return nil, err
	}
	sort.Strings(paths)
	l.Info("batch export done", slog.Int("files", len(paths)), slog.Int("pages", len(pages)))
	return paths, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatPNG, FormatPDF}
	case PresetPrint:
		return []string{FormatPDF}
	default:
		return []string{FormatPDF, FormatText}
	}
}

func presetTitlePage(p PresetName) bool {
	return p == PresetPrint
}
