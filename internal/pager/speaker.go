/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pager

import (
	"strings"

	"goscreenwriter/internal/domain"
)

// speakerTable returns, for every index, the name of the nearest character
// element strictly before it in the input sequence ("" when there is none).
func speakerTable(elements []domain.Element) []string {
	out := make([]string, len(elements))
	last := ""
	for i, el := range elements {
		out[i] = last
		if el.Type == domain.Character {
			last = speakerName(el.Content)
		}
	}
	return out
}

// speaker resolves the controlling character name for the dialogue at index i.
func (r *run) speaker(i int, el domain.Element) string {
	if i >= 0 && i < len(r.speakers) && r.speakers[i] != "" {
		return r.speakers[i]
	}
	if name := speakerName(el.Character); name != "" {
		return name
	}
	return FallbackSpeaker
}

var contdVariants = []string{"(CONT'D)", "(CONT’D)", "(CONTD)", "(CONT.)", "(CONTINUED)"}

// speakerName trims a character cue and drops an existing continuation
// extension so it is not doubled.
func speakerName(s string) string {
	s = strings.TrimSpace(s)
	for _, v := range contdVariants {
		if n := len(s) - len(v); n >= 0 && strings.EqualFold(s[n:], v) {
			s = strings.TrimSpace(s[:n])
			break
		}
	}
	return s
}
