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
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Decode turns raw script bytes into NFC-normalized UTF-8. An empty charset
// means UTF-8, with a UTF-8 or UTF-16 byte order mark taking precedence;
// otherwise charset is an IANA name such as "windows-1252".
// Normalization keeps rune-based line lengths stable for decomposed input.
func Decode(data []byte, charset string) (string, error) {
	var dec *encoding.Decoder
	if cs := strings.TrimSpace(charset); cs != "" {
		enc, err := ianaindex.IANA.Encoding(cs)
		if err != nil {
			return "", fmt.Errorf("unknown charset %q: %w", cs, err)
		}
		if enc == nil {
			return "", fmt.Errorf("unsupported charset %q", cs)
		}
		dec = enc.NewDecoder()
	} else {
		dec = unicode.UTF8.NewDecoder()
	}
	out, _, err := transform.Bytes(transform.Chain(unicode.BOMOverride(dec), norm.NFC), data)
	if err != nil {
		return "", fmt.Errorf("decode script: %w", err)
	}
	return string(out), nil
}
