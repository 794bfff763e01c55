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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/storage"
)

// US Letter in points with the standard screenplay margins.
const (
	pageWidthPt  = 612.0
	pageHeightPt = 792.0
	leftMarginPt = 108.0 // 1.5in
	topMarginPt  = 72.0
	rightEdgePt  = pageWidthPt - 72.0
	fontSizePt   = 12.0
	leadingPt    = 12.0
	cellWidthPt  = 7.2 // Courier advance at 12pt
)

// PDFOptions controls PDF export behavior.
// The zero value yields the default layout without a title page.
type PDFOptions struct {
	Layout    pager.Layout
	TitlePage bool
}

// WritePDF paginates sp and writes the PDF to w.
func WritePDF(w io.Writer, sp domain.Screenplay, opt PDFOptions) error {
	return writePDF(w, sp, opt.Layout.Paginate(sp.Elements), opt)
}

func writePDF(w io.Writer, sp domain.Screenplay, pages []domain.Page, opt PDFOptions) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidthPt, Ht: pageHeightPt},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if sp.Title != "" {
		pdf.SetTitle(sp.Title, true)
	}
	if sp.Metadata.Author != "" {
		pdf.SetAuthor(sp.Metadata.Author, true)
	}
	pdf.SetCreator("goscreenwriter", false)
	// Core fonts are cp1252; translate from UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Courier", "", fontSizePt)

	if opt.TitlePage {
		titlePage(pdf, tr, sp)
	}
	for _, rp := range Render(opt.Layout, pages) {
		pdf.AddPage()
		if rp.Number > 1 {
			num := fmt.Sprintf("%d.", rp.Number)
			pdf.Text(rightEdgePt-pdf.GetStringWidth(num), topMarginPt/2+fontSizePt, num)
		}
		for i, ln := range rp.Lines {
			if ln.Text == "" {
				continue
			}
			x := leftMarginPt + float64(ln.Column)*cellWidthPt
			y := topMarginPt + float64(i)*leadingPt + fontSizePt*0.8
			pdf.Text(x, y, tr(ln.Text))
		}
	}
	if pdf.PageNo() == 0 {
		// gofpdf refuses to output a document without pages
		pdf.AddPage()
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func titlePage(pdf *gofpdf.Fpdf, tr func(string) string, sp domain.Screenplay) {
	pdf.AddPage()
	center := func(y float64, s string) {
		s = tr(s)
		pdf.Text((pageWidthPt-pdf.GetStringWidth(s))/2, y, s)
	}
	y := pageHeightPt / 3
	title := strings.ToUpper(strings.TrimSpace(sp.Title))
	if title == "" {
		title = "UNTITLED"
	}
	center(y, title)
	if a := strings.TrimSpace(sp.Metadata.Author); a != "" {
		center(y+4*leadingPt, "Written by")
		center(y+6*leadingPt, a)
	}
	if d := strings.TrimSpace(sp.Metadata.Draft); d != "" {
		center(y+10*leadingPt, d)
	}
	if c := strings.TrimSpace(sp.Metadata.Contact); c != "" {
		lines := strings.Split(c, "\n")
		for i, l := range lines {
			pdf.Text(leftMarginPt, pageHeightPt-topMarginPt-float64(len(lines)-1-i)*leadingPt, tr(strings.TrimSpace(l)))
		}
	}
}

// ExportPDF writes the project's screenplay to outPath. Relative paths resolve under <project>/exports.
func ExportPDF(ph *storage.ProjectHandle, outPath string, opt PDFOptions) error {
	if ph == nil {
		return errors.New("project handle is nil")
	}
	_, err := exportPDF(ph, opt.Layout.Paginate(ph.Screenplay.Elements), outPath, opt)
	return err
}

func exportPDF(ph *storage.ProjectHandle, pages []domain.Page, outPath string, opt PDFOptions) (string, error) {
	outPath = resolveOut(ph, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	err := writeFile(outPath, func(w io.Writer) error {
		return writePDF(w, ph.Screenplay, pages, opt)
	})
	return outPath, err
}

// resolveOut places a relative path under the project's exports folder.
func resolveOut(ph *storage.ProjectHandle, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ph.Root, storage.ExportsDirName, p)
}

// writeFile creates path and streams fn into it; a failed write removes the partial file.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return fn(f)
}
