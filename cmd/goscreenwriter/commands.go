/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/export"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/script"
)

// Output modes of the paginate command.
const (
	outputSummary = "summary"
	outputPages   = "pages"
	outputMap     = "map"
)

func paginateCommand() *cli.Command {
	return &cli.Command{
		Name:      "paginate",
		Usage:     "paginate a screenplay file (.fountain, .txt or .json)",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   outputSummary,
				Usage:   "what to print: summary, pages (JSON page list) or map (JSON id to page)",
			},
			&cli.IntFlag{
				Name:  "page-lines",
				Usage: "override the page line budget",
			},
			charsetFlag(),
		},
		Action: runPaginate,
	}
}

func runPaginate(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	if cmd.NArg() != 1 {
		return errors.New("paginate requires exactly one FILE argument")
	}
	sp, err := loadScript(env, cmd.Args().First(), cmd.String("charset"))
	if err != nil {
		return err
	}
	l := env.Layout
	if n := int(cmd.Int("page-lines")); n > 0 {
		l.PageLines = n
	}
	pages := l.Paginate(sp.Elements)
	switch mode := cmd.String("output"); mode {
	case outputSummary:
		return printSummary(env.Out, sp, l, pages)
	case outputPages:
		return writeJSON(env.Out, pages)
	case outputMap:
		return writeJSON(env.Out, pager.PageMap(pages))
	default:
		return fmt.Errorf("unknown output mode %q", mode)
	}
}

// loadScript reads a screenplay and logs parse problems as warnings; they are never fatal.
func loadScript(env *appEnv, path, charset string) (domain.Screenplay, error) {
	sp, perrs, err := script.LoadCharset(path, charset)
	if err != nil {
		return sp, fmt.Errorf("load %s: %w", path, err)
	}
	for _, pe := range perrs {
		env.Log.Warn("script problem", slog.String("file", path), slog.String("err", pe.Error()))
	}
	return sp, nil
}

func printSummary(w io.Writer, sp domain.Screenplay, l pager.Layout, pages []domain.Page) error {
	s := l.Summarize(pages)
	var b strings.Builder
	fmt.Fprintf(&b, "Title:    %s\n", sp.Title)
	fmt.Fprintf(&b, "Elements: %d\n", s.Elements)
	fmt.Fprintf(&b, "Pages:    %d\n", s.Pages)
	fmt.Fprintf(&b, "Splits:   %d\n", s.Splits)
	for i, used := range s.LinesUsed {
		fmt.Fprintf(&b, "  page %3d: %2d/%d lines\n", pages[i].PageNumber, used, l.PageLines)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func charsetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "charset",
		Usage: "read scripts in IANA `CHARSET` instead of UTF-8 (byte order marks still win)",
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "export a project as PDF, PNG previews or plain text",
		ArgsUsage: "PROJECT_DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "preset",
				Aliases: []string{"p"},
				Usage:   "export preset: draft, print or web (default from config)",
			},
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "formats to write (pdf, png, txt); repeatable, overrides the preset",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output directory; relative paths resolve under PROJECT_DIR/exports",
			},
			&cli.BoolFlag{
				Name:  "title-page",
				Usage: "force a PDF title page on or off",
			},
		},
		Action: runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	if cmd.NArg() != 1 {
		return errors.New("export requires exactly one PROJECT_DIR argument")
	}
	ph, err := openProject(cmd.Args().First())
	if err != nil {
		return err
	}

	presetName := cmd.String("preset")
	if presetName == "" {
		presetName = env.Cfg.Export.Preset
	}
	preset, err := export.ParsePreset(presetName)
	if err != nil {
		return err
	}
	opt := export.BatchOptions{
		Preset:  preset,
		Formats: cmd.StringSlice("format"),
		Layout:  env.Layout,
		OutDir:  cmd.String("out"),
	}
	if opt.OutDir == "" {
		opt.OutDir = env.Cfg.Export.OutDir
	}
	if cmd.IsSet("title-page") {
		tp := cmd.Bool("title-page")
		opt.TitlePage = &tp
	}

	paths, err := export.BatchExport(ctx, ph, opt)
	if err != nil {
		return err
	}
	for _, p := range paths {
		size := "?"
		if st, err := os.Stat(p); err == nil {
			size = humanize.Bytes(uint64(st.Size()))
		}
		if _, err := fmt.Fprintf(env.Out, "%s (%s)\n", p, size); err != nil {
			return err
		}
	}
	return nil
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:      "dumpconfig",
		Usage:     "print the effective configuration as YAML",
		ArgsUsage: "[FILE]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env := envFromContext(ctx)
			if cmd.NArg() == 0 {
				return config.Dump(env.Out, env.Cfg)
			}
			path := filepath.Clean(cmd.Args().First())
			return writeFileAtomic(path, func(w io.Writer) error { return config.Dump(w, env.Cfg) })
		},
	}
}

func writeFileAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
