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
	"fmt"
	"log/slog"
	"regexp"

	"goscreenwriter/internal/domain"
)

var fragmentSuffix = regexp.MustCompile(`-(part\d+|contd\d*)$`)

// paginateFn is swapped in tests to exercise the panic fallback.
var paginateFn = Layout.Paginate

// OriginalID strips a "-partN" or "-contd" fragment suffix from id.
func OriginalID(id string) string {
	return fragmentSuffix.ReplaceAllString(id, "")
}

// CalculatePagination maps every original element id to the page its content
// begins on, using the default layout.
func CalculatePagination(elements []domain.Element) map[string]int {
	return DefaultLayout().CalculatePagination(elements)
}

// CalculatePagination maps every original element id to the page its content begins on.
func (l Layout) CalculatePagination(elements []domain.Element) map[string]int {
	return PageMap(paginateFn(l, elements))
}

// PageMap projects pages onto an id -> first page lookup. Synthesized
// continuation headers have no original element and are left out.
func PageMap(pages []domain.Page) map[string]int {
	m := make(map[string]int)
	for _, p := range pages {
		for _, el := range p.Elements {
			if el.Synthetic {
				continue
			}
			id := OriginalID(el.ID)
			if _, seen := m[id]; !seen {
				m[id] = p.PageNumber
			}
		}
	}
	return m
}

// SafeCalculatePagination is CalculatePagination for UI callers: a panic is
// logged and the whole document is reported as page 1 instead.
func (l Layout) SafeCalculatePagination(logger *slog.Logger, elements []domain.Element) (m map[string]int) {
	defer func() {
		if rec := recover(); rec != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("pagination failed, falling back to single page",
				slog.String("panic", fmt.Sprint(rec)), slog.Int("elements", len(elements)))
			m = make(map[string]int, len(elements))
			for _, el := range elements {
				if el.ID != "" {
					m[el.ID] = 1
				}
			}
		}
	}()
	return l.CalculatePagination(elements)
}
