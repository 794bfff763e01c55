/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package script

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"go.uber.org/multierr"

	"goscreenwriter/internal/domain"
)

//go:embed schema/screenplay.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ErrInvalidDocument is wrapped by every schema violation returned from DecodeDocument.
var ErrInvalidDocument = errors.New("invalid screenplay document")

// DecodeDocument reads a JSON screenplay document and validates it against the
// embedded schema. All schema violations are returned together.
// Elements without id or type pass validation; the pager skips them.
func DecodeDocument(r io.Reader) (domain.Screenplay, error) {
	var sp domain.Screenplay
	data, err := io.ReadAll(r)
	if err != nil {
		return sp, fmt.Errorf("read document: %w", err)
	}
	if err := Validate(data); err != nil {
		return sp, err
	}
	if err := json.Unmarshal(data, &sp); err != nil {
		return sp, fmt.Errorf("decode document: %w", err)
	}
	if sp.Elements == nil {
		sp.Elements = []domain.Element{}
	}
	return sp, nil
}

// Validate checks raw JSON against the screenplay schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if result.Valid() {
		return nil
	}
	var errs error
	for _, e := range result.Errors() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrInvalidDocument, e.String()))
	}
	return errs
}

// EncodeDocument writes sp as indented JSON. Page-derived flags are kept as they are.
func EncodeDocument(w io.Writer, sp domain.Screenplay) error {
	if sp.Elements == nil {
		sp.Elements = []domain.Element{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sp)
}

// DetectFormat picks a format from the file extension, falling back to sniffing the content.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".fountain", ".spmd", ".txt":
		return FormatFountain
	}
	if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
		return FormatJSON
	}
	return FormatFountain
}

// Load reads a screenplay from disk in either format. Text parse problems come
// back as warnings alongside a usable screenplay; err is reserved for I/O,
// decoding and schema failures.
func Load(path string) (domain.Screenplay, []Error, error) {
	return LoadCharset(path, "")
}

// LoadCharset is Load for a file in the given IANA charset (see Decode).
func LoadCharset(path, charset string) (domain.Screenplay, []Error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Screenplay{}, nil, fmt.Errorf("load script: %w", err)
	}
	text, err := Decode(data, charset)
	if err != nil {
		return domain.Screenplay{}, nil, err
	}
	if DetectFormat(path, []byte(text)) == FormatJSON {
		sp, err := DecodeDocument(strings.NewReader(text))
		return sp, nil, err
	}
	sp, warnings := ParseScreenplay(text)
	if sp.Title == "" {
		sp.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sp, warnings, nil
}
