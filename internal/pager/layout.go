/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pager splits an ordered screenplay element sequence into fixed-height
// pages. It wraps each element on the screenplay character grid, packs them
// against the page budget and splits dialogue across page boundaries with
// "(MORE)" and "NAME (CONT'D)" markers.
//
// Pagination is a pure function of its input: nothing is cached between calls
// and the authoritative element slice is never modified.
package pager

import (
	"goscreenwriter/internal/textlayout"
)

// PageLines is the printable line budget of one screenplay page
// (6 lines per inch over a 9 inch text column).
const PageLines = 54

const (
	// MoreMarker tags a dialogue fragment that continues on the next page.
	MoreMarker = "(MORE)"
	// ContdSuffix is appended to the speaker name on a continuation page.
	ContdSuffix = "(CONT'D)"
	// FallbackSpeaker is used when no controlling character can be found.
	FallbackSpeaker = "CHARACTER"

	// minFragment is the least number of dialogue lines left on either side of a split.
	minFragment = 2
)

// Layout fixes the page geometry used by a pagination run.
type Layout struct {
	PageLines int
	Grid      textlayout.Grid
}

// DefaultLayout returns the US-Letter screenplay layout.
func DefaultLayout() Layout {
	return Layout{PageLines: PageLines, Grid: textlayout.DefaultGrid()}
}

func (l Layout) normalized() Layout {
	if l.PageLines <= 0 {
		l.PageLines = PageLines
	}
	if l.Grid.Widths == nil && l.Grid.LeadIns == nil {
		l.Grid = textlayout.DefaultGrid()
	}
	return l
}
