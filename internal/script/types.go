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

	"github.com/google/uuid"

	"goscreenwriter/internal/domain"
)

// Error represents a parse or validation error with position context.
// Line is 1-based; 0 means the error is not tied to a source line.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Line <= 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Format identifies an on-disk script representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatFountain Format = "fountain"
)

// idNamespace seeds the name-based element ids so that re-parsing the same text
// yields the same ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("goscreenwriter/element"))

// ElementID returns the deterministic id for an element at seq with the given type and content.
func ElementID(seq int, t domain.ElementType, content string) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d\x00%s\x00%s", seq, t, content))).String()
}
