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

import "goscreenwriter/internal/domain"

// MarkContinuations returns a copy of elements with IsContinued and
// ContinuesNext recomputed from pages. Only these flags are written back;
// split fragments and CONT'D headers stay in the paginated view.
func MarkContinuations(elements []domain.Element, pages []domain.Page) []domain.Element {
	type flags struct{ continued, next bool }
	seen := make(map[string]flags)
	for _, p := range pages {
		for _, el := range p.Elements {
			if el.Synthetic {
				continue
			}
			id := OriginalID(el.ID)
			f := seen[id]
			f.continued = f.continued || el.IsContinued
			f.next = f.next || el.ContinuesNext
			seen[id] = f
		}
	}
	out := make([]domain.Element, len(elements))
	for i, el := range elements {
		f := seen[el.ID]
		el.IsContinued = f.continued
		el.ContinuesNext = f.next
		el.Notes = clearMore(el.Notes)
		out[i] = el
	}
	return out
}

func clearMore(notes string) string {
	if notes == MoreMarker {
		return ""
	}
	return notes
}

// Break marks an element that starts a new page in the editor.
type Break struct {
	ID   string
	Page int
}

// PageBreaks returns the elements that need a page-break marker above them:
// those whose page is greater than the previous rendered element's page.
// The first rendered element never gets one. Elements missing from pageMap
// are not rendered with a page and are skipped.
func PageBreaks(elements []domain.Element, pageMap map[string]int) []Break {
	var out []Break
	prev := 0
	for _, el := range elements {
		pg, ok := pageMap[el.ID]
		if !ok {
			continue
		}
		if prev != 0 && pg > prev {
			out = append(out, Break{ID: el.ID, Page: pg})
		}
		prev = pg
	}
	return out
}
