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

// Summary describes a pagination result.
type Summary struct {
	Pages     int
	Elements  int   // original elements placed
	Splits    int   // dialogue page breaks
	LinesUsed []int // per page, lead-ins and (MORE) lines included
}

// Summarize recomputes per-page line usage and split counts from pages.
func (l Layout) Summarize(pages []domain.Page) Summary {
	l = l.normalized()
	s := Summary{Pages: len(pages), LinesUsed: make([]int, len(pages))}
	originals := make(map[string]struct{})
	for i, p := range pages {
		line := 1
		for _, el := range p.Elements {
			h := l.Grid.Height(el, line == 1)
			if el.Notes == MoreMarker && el.ContinuesNext {
				h++
				s.Splits++
			}
			line += h
			if !el.Synthetic {
				originals[OriginalID(el.ID)] = struct{}{}
			}
		}
		s.LinesUsed[i] = line - 1
	}
	s.Elements = len(originals)
	return s
}
