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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
)

func TestWritePDF_ProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, splitScene(), PDFOptions{TitlePage: true}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	// title page plus two script pages
	if n := bytes.Count(buf.Bytes(), []byte("/Type /Page\n")); n != 3 {
		t.Fatalf("page objects = %d, want 3", n)
	}
}

func TestWritePDF_EmptyScreenplay(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, domain.Screenplay{}, PDFOptions{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("empty screenplay must still produce a valid document")
	}
}

func TestExportPDF_RelativePathUnderExports(t *testing.T) {
	ph := newProject(t, splitScene())
	if err := ExportPDF(ph, "draft.pdf", PDFOptions{Layout: pager.DefaultLayout()}); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	st, err := os.Stat(filepath.Join(ph.Root, "exports", "draft.pdf"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() == 0 {
		t.Fatalf("pdf file empty")
	}
}

func TestExportPDF_NilHandle(t *testing.T) {
	if err := ExportPDF(nil, "x.pdf", PDFOptions{}); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
