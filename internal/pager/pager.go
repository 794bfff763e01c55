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
	"strings"

	"goscreenwriter/internal/domain"
)

// Paginate lays out elements with the default layout.
func Paginate(elements []domain.Element) []domain.Page {
	return DefaultLayout().Paginate(elements)
}

// Paginate walks elements in order and groups them into pages. Malformed
// elements (no id or type) are skipped. An empty input yields no pages.
func (l Layout) Paginate(elements []domain.Element) []domain.Page {
	elements = wellFormed(elements)
	r := &run{
		layout:   l.normalized(),
		speakers: speakerTable(elements),
		cur:      cursor{line: 1, pageNumber: 1},
	}
	for i, el := range elements {
		if el.Type == domain.Dialogue {
			r.placeDialogue(i, el)
			continue
		}
		r.placeWhole(el)
	}
	r.flush()
	return r.pages
}

// wellFormed drops malformed elements and clears continuation flags left
// over from an earlier run; they are recomputed from the new layout.
func wellFormed(elements []domain.Element) []domain.Element {
	out := make([]domain.Element, 0, len(elements))
	for _, el := range elements {
		if el.Malformed() {
			continue
		}
		el.IsContinued = false
		el.ContinuesNext = false
		out = append(out, el)
	}
	return out
}

// cursor is the accumulator for the page under construction.
type cursor struct {
	line       int // 1-based line within the page
	pageNumber int
	buffer     []domain.Element
}

func (c cursor) firstOnPage() bool { return c.line == 1 }

type run struct {
	layout   Layout
	speakers []string
	cur      cursor
	pages    []domain.Page
}

// decision is the outcome of the overflow test for one element.
type decision int

const (
	place      decision = iota // fits on the current page
	deferWhole                 // flush, then retry on a fresh page
	split                      // split at the returned index
	force                      // place whole even though it overflows
)

func (d decision) String() string {
	switch d {
	case place:
		return "place"
	case deferWhole:
		return "defer"
	case split:
		return "split"
	case force:
		return "force"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// decide chooses what to do with an element of total wrapped lines plus
// spacing lead-in at the given cursor line. splittable is false for anything
// but dialogue. fresh reports that nothing but this element's own
// continuation header is on the page, so deferring would not gain any room.
func decide(line, pageLines, spacing, total int, splittable, fresh bool) (decision, int) {
	if line+total+spacing <= pageLines {
		return place, 0
	}
	if !splittable {
		if fresh {
			return force, 0
		}
		return deferWhole, 0
	}
	available := pageLines - line - spacing
	// one line is reserved for (MORE)
	splitAt := available - 1
	if available >= minFragment && total-available >= minFragment && splitAt >= minFragment {
		return split, splitAt
	}
	if !fresh {
		return deferWhole, 0
	}
	// Nothing to gain from a new page: split as late as the guard allows.
	if rest := total - minFragment; rest < splitAt {
		splitAt = rest
	}
	if splitAt >= minFragment {
		return split, splitAt
	}
	return force, 0
}

func (r *run) fits(h int) bool { return r.cur.line+h <= r.layout.PageLines }

func (r *run) push(el domain.Element, h int) {
	r.cur.buffer = append(r.cur.buffer, el)
	r.cur.line += h
}

// flush emits the current page, if it holds anything, and starts a new one.
func (r *run) flush() {
	if len(r.cur.buffer) == 0 {
		return
	}
	r.pages = append(r.pages, domain.Page{PageNumber: r.cur.pageNumber, Elements: r.cur.buffer})
	r.cur = cursor{line: 1, pageNumber: r.cur.pageNumber + 1}
}

// placeWhole handles every element that is never split.
func (r *run) placeWhole(el domain.Element) {
	for {
		first := r.cur.firstOnPage()
		lines := len(r.layout.Grid.Lines(el))
		spacing := r.layout.Grid.LeadIn(el.Type, first)
		d, _ := decide(r.cur.line, r.layout.PageLines, spacing, lines, false, len(r.cur.buffer) == 0)
		switch d {
		case place, force:
			r.push(el, lines+spacing)
			return
		default:
			r.flush()
		}
	}
}

// placeDialogue places a dialogue element, splitting it across as many pages
// as needed. Every fragment but the last carries (MORE); every page after the
// first starts with a synthesized "NAME (CONT'D)" header.
func (r *run) placeDialogue(i int, el domain.Element) {
	lines := r.layout.Grid.Lines(el)
	part := 0
	for {
		first := r.cur.firstOnPage()
		spacing := r.layout.Grid.LeadIn(el.Type, first)
		d, splitAt := decide(r.cur.line, r.layout.PageLines, spacing, len(lines), true, r.fresh(el))
		switch d {
		case place, force:
			r.push(tail(el, lines, part), len(lines)+spacing)
			return
		case deferWhole:
			r.flush()
		case split:
			part++
			head := el
			head.ID = fmt.Sprintf("%s-part%d", el.ID, part)
			head.Content = strings.Join(lines[:splitAt], " ")
			head.Notes = MoreMarker
			head.ContinuesNext = true
			head.IsContinued = part > 1
			// the reserved (MORE) line
			r.push(head, splitAt+spacing+1)
			r.flush()
			hdr := r.contdHeader(i, el, part)
			r.push(hdr, r.layout.Grid.Height(hdr, r.cur.firstOnPage()))
			lines = lines[splitAt:]
		}
	}
}

// tail is the final (or only) piece of a dialogue element. It keeps the
// original id so the editor can still annotate the real element.
func tail(el domain.Element, lines []string, part int) domain.Element {
	if part == 0 {
		return el
	}
	el.Content = strings.Join(lines, " ")
	el.IsContinued = true
	el.ContinuesNext = false
	return el
}

func (r *run) contdHeader(i int, el domain.Element, part int) domain.Element {
	id := el.ID + "-contd"
	if part > 1 {
		id = fmt.Sprintf("%s-contd%d", el.ID, part)
	}
	return domain.Element{
		ID:        id,
		Type:      domain.Character,
		Content:   r.speaker(i, el) + " " + ContdSuffix,
		Sequence:  el.Sequence,
		Character: el.Character,
		SceneID:   el.SceneID,
		Dual:      el.Dual,
		Synthetic: true,
	}
}

// fresh reports whether the current page holds nothing but el's own
// continuation header.
func (r *run) fresh(el domain.Element) bool {
	switch len(r.cur.buffer) {
	case 0:
		return true
	case 1:
		b := r.cur.buffer[0]
		return b.Synthetic && OriginalID(b.ID) == el.ID
	}
	return false
}
