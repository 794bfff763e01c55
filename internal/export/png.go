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
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/textlayout"
)

// Preview margins in grid cells.
const (
	previewLeftCells   = 15
	previewRightCells  = 10
	previewTopLines    = 6
	previewBottomLines = 6
)

// PNGOptions controls page preview rendering.
// A zero Face means the built-in 7x13 bitmap face.
type PNGOptions struct {
	Layout      pager.Layout
	Face        textlayout.Face
	PageBorder  bool
	Ink, Paper  color.RGBA
	BorderColor color.RGBA
}

func (o PNGOptions) withDefaults() PNGOptions {
	if o.Face.Face == nil {
		o.Face = textlayout.BasicFace()
	}
	if o.Layout.PageLines <= 0 {
		o.Layout.PageLines = pager.PageLines
	}
	if o.Ink == (color.RGBA{}) {
		o.Ink = color.RGBA{0, 0, 0, 255}
	}
	if o.Paper == (color.RGBA{}) {
		o.Paper = color.RGBA{255, 255, 255, 255}
	}
	if o.BorderColor == (color.RGBA{}) {
		o.BorderColor = color.RGBA{200, 200, 200, 255}
	}
	return o
}

// RenderPage rasterizes one rendered page onto a white canvas sized for the layout.
func RenderPage(rp RenderedPage, opt PNGOptions) *image.RGBA {
	opt = opt.withDefaults()
	cw, ch := opt.Face.CellWidth, opt.Face.CellHeight
	w := (previewLeftCells + RightEdge + previewRightCells) * cw
	h := (previewTopLines + opt.Layout.PageLines + previewBottomLines) * ch
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: opt.Paper}, image.Point{}, draw.Src)
	if opt.PageBorder {
		strokeRect(img, 0, 0, w-1, h-1, opt.BorderColor)
	}

	d := &font.Drawer{Dst: img, Src: &image.Uniform{C: opt.Ink}, Face: opt.Face.Face}
	if rp.Number > 1 {
		num := fmt.Sprintf("%d.", rp.Number)
		x := (previewLeftCells+RightEdge)*cw - opt.Face.MeasureString(num)
		d.Dot = fixed.P(x, (previewTopLines/2)*ch+opt.Face.Ascent)
		d.DrawString(num)
	}
	for i, ln := range rp.Lines {
		if ln.Text == "" {
			continue
		}
		d.Dot = fixed.P((previewLeftCells+ln.Column)*cw, (previewTopLines+i)*ch+opt.Face.Ascent)
		d.DrawString(ln.Text)
	}
	return img
}

// WritePNG encodes the preview of one rendered page to w.
func WritePNG(w io.Writer, rp RenderedPage, opt PNGOptions) error {
	if err := png.Encode(w, RenderPage(rp, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNGPages writes page-NNN.png for every page of the project's screenplay into outDir.
// Relative directories resolve under <project>/exports. It returns the written paths in page order.
func ExportPNGPages(ph *storage.ProjectHandle, outDir string, opt PNGOptions) ([]string, error) {
	if ph == nil {
		return nil, errors.New("project handle is nil")
	}
	return exportPNGPages(ph, opt.Layout.Paginate(ph.Screenplay.Elements), outDir, opt)
}

func exportPNGPages(ph *storage.ProjectHandle, pages []domain.Page, outDir string, opt PNGOptions) ([]string, error) {
	outDir = resolveOut(ph, outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for _, rp := range Render(opt.Layout, pages) {
		name := filepath.Join(outDir, fmt.Sprintf("page-%03d.png", rp.Number))
		if err := writeFile(name, func(w io.Writer) error { return WritePNG(w, rp, opt) }); err != nil {
			return paths, err
		}
		paths = append(paths, name)
	}
	return paths, nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
