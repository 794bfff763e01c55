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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
	"goscreenwriter/internal/storage"
)

// PageSeparator separates pages in plain-text output.
const PageSeparator = "\f"

// WriteText paginates sp and writes monospaced plain-text pages to w.
// Pages after the first start with a right-aligned page number row and a blank row.
func WriteText(w io.Writer, sp domain.Screenplay, l pager.Layout) error {
	return writeText(w, l.Paginate(sp.Elements), l)
}

func writeText(w io.Writer, pages []domain.Page, l pager.Layout) error {
	bw := bufio.NewWriter(w)
	for i, rp := range Render(l, pages) {
		if i > 0 {
			bw.WriteString(PageSeparator)
		}
		if rp.Number > 1 {
			num := fmt.Sprintf("%d.", rp.Number)
			bw.WriteString(strings.Repeat(" ", max(RightEdge-utf8.RuneCountInString(num), 0)))
			bw.WriteString(num)
			bw.WriteString("\n\n")
		}
		for _, ln := range rp.Lines {
			if ln.Text != "" {
				bw.WriteString(strings.Repeat(" ", ln.Column))
				bw.WriteString(ln.Text)
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// ExportText writes the project's screenplay as plain text to outPath (relative to <project>/exports).
func ExportText(ph *storage.ProjectHandle, outPath string, l pager.Layout) error {
	if ph == nil {
		return errors.New("project handle is nil")
	}
	_, err := exportText(ph, l.Paginate(ph.Screenplay.Elements), outPath, l)
	return err
}

func exportText(ph *storage.ProjectHandle, pages []domain.Page, outPath string, l pager.Layout) (string, error) {
	outPath = resolveOut(ph, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	err := writeFile(outPath, func(w io.Writer) error { return writeText(w, pages, l) })
	return outPath, err
}
