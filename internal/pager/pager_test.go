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
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/textlayout"
)

// block returns content that wraps to exactly n lines at width w.
func block(n, w int) string {
	return strings.TrimSpace(strings.Repeat(strings.Repeat("a", w)+" ", n))
}

func action(id string, lines int) domain.Element {
	return domain.Element{ID: id, Type: domain.Action, Content: block(lines, textlayout.WidthAction)}
}

func dialogue(id string, lines int) domain.Element {
	return domain.Element{ID: id, Type: domain.Dialogue, Content: block(lines, textlayout.WidthDialogue)}
}

func character(id, name string) domain.Element {
	return domain.Element{ID: id, Type: domain.Character, Content: name}
}

func lineCount(el domain.Element) int {
	return len(textlayout.DefaultGrid().Lines(el))
}

func TestPaginate_Empty(t *testing.T) {
	if pages := Paginate(nil); len(pages) != 0 {
		t.Fatalf("expected no pages, got %d", len(pages))
	}
	if m := CalculatePagination([]domain.Element{}); len(m) != 0 {
		t.Fatalf("expected empty page map, got %v", m)
	}
}

func TestPaginate_ShortActionsSinglePage(t *testing.T) {
	var els []domain.Element
	for i := 0; i < 5; i++ {
		els = append(els, action(fmt.Sprintf("a%d", i), 1))
	}
	pages := Paginate(els)
	if len(pages) != 1 || len(pages[0].Elements) != 5 || pages[0].PageNumber != 1 {
		t.Fatalf("expected one page with 5 elements, got %+v", pages)
	}
	m := CalculatePagination(els)
	for _, el := range els {
		if m[el.ID] != 1 {
			t.Fatalf("element %s on page %d, want 1", el.ID, m[el.ID])
		}
	}
}

func TestPaginate_SplitsDialogueWithMoreAndContd(t *testing.T) {
	// action 43 lines (cursor 44), character +2 (cursor 46) => 8 lines available
	els := []domain.Element{
		action("a1", 43),
		character("c1", "BOB"),
		dialogue("d1", 10),
	}
	pages := Paginate(els)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	p1, p2 := pages[0].Elements, pages[1].Elements
	if len(p1) != 3 || len(p2) != 2 {
		t.Fatalf("unexpected page sizes: %d, %d", len(p1), len(p2))
	}
	head := p1[2]
	if head.ID != "d1-part1" || head.Notes != MoreMarker || !head.ContinuesNext {
		t.Fatalf("unexpected first fragment: %+v", head)
	}
	if n := lineCount(head); n != 7 {
		t.Fatalf("first fragment has %d lines, want 7", n)
	}
	hdr := p2[0]
	if hdr.Type != domain.Character || hdr.Content != "BOB (CONT'D)" || !hdr.Synthetic || hdr.ID != "d1-contd" {
		t.Fatalf("unexpected continuation header: %+v", hdr)
	}
	rest := p2[1]
	if rest.ID != "d1" || rest.Type != domain.Dialogue || !rest.IsContinued || rest.Notes != "" {
		t.Fatalf("unexpected continuation fragment: %+v", rest)
	}
	if n := lineCount(rest); n != 3 {
		t.Fatalf("continuation has %d lines, want 3", n)
	}
	m := PageMap(pages)
	if m["d1"] != 1 || m["a1"] != 1 || m["c1"] != 1 {
		t.Fatalf("unexpected page map: %v", m)
	}
	if _, ok := m["d1-contd"]; ok {
		t.Fatalf("synthetic header leaked into page map: %v", m)
	}
}

func TestPaginate_GuardDefersWholeDialogue(t *testing.T) {
	// action 52 lines leaves the cursor at 53: one line available
	els := []domain.Element{action("a1", 52), dialogue("d1", 10)}
	pages := Paginate(els)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if got := pages[1].Elements; len(got) != 1 || got[0].ID != "d1" || got[0].Content != els[1].Content {
		t.Fatalf("expected whole dialogue on page 2, got %+v", got)
	}
	if m := PageMap(pages); m["d1"] != 2 {
		t.Fatalf("dialogue on page %d, want 2", m["d1"])
	}
}

func TestPaginate_GuardDefersWhenTooFewLinesCarry(t *testing.T) {
	// cursor 46 => 8 available; a 9-line dialogue would carry only 1 line
	els := []domain.Element{action("a1", 43), character("c1", "ANN"), dialogue("d1", 9)}
	pages := Paginate(els)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	last := pages[1].Elements
	if len(last) != 1 || last[0].ID != "d1" || last[0].Notes != "" {
		t.Fatalf("expected whole dialogue deferred, got %+v", last)
	}
}

func TestPaginate_FirstOnPageDialogueTallerThanPage(t *testing.T) {
	els := []domain.Element{character("c1", "EVE"), dialogue("d1", 60)}
	pages := Paginate(els)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if n := lineCount(pages[0].Elements[1]); n != 51 {
		t.Fatalf("first fragment %d lines, want 51", n)
	}
	if n := lineCount(pages[1].Elements[1]); n != 9 {
		t.Fatalf("second fragment %d lines, want 9", n)
	}
}

func TestPaginate_MultiPageDialogue(t *testing.T) {
	els := []domain.Element{character("c1", "EVE"), dialogue("d1", 150), action("a2", 1)}
	pages := Paginate(els)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	wantIDs := [][]string{
		{"c1", "d1-part1"},
		{"d1-contd", "d1-part2"},
		{"d1-contd2", "d1", "a2"},
	}
	total := 0
	for i, p := range pages {
		var ids []string
		for _, el := range p.Elements {
			ids = append(ids, el.ID)
			if el.Type == domain.Dialogue {
				total += lineCount(el)
			}
		}
		if !reflect.DeepEqual(ids, wantIDs[i]) {
			t.Fatalf("page %d ids = %v, want %v", i+1, ids, wantIDs[i])
		}
	}
	if total != 150 {
		t.Fatalf("dialogue lines not conserved: %d", total)
	}
	mid := pages[1].Elements[1]
	if !mid.IsContinued || !mid.ContinuesNext || mid.Notes != MoreMarker {
		t.Fatalf("middle fragment flags wrong: %+v", mid)
	}
	if hdr := pages[2].Elements[0]; hdr.Content != "EVE (CONT'D)" {
		t.Fatalf("unexpected header on page 3: %q", hdr.Content)
	}
}

func TestPaginate_FreshPageWidowStillSplits(t *testing.T) {
	// 54 lines on an empty page: deferring gains nothing, split keeps 2 on the next page
	pages := Paginate([]domain.Element{dialogue("d1", 54)})
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	a, b := lineCount(pages[0].Elements[0]), lineCount(pages[1].Elements[1])
	if a != 52 || b != 2 {
		t.Fatalf("unexpected split %d/%d", a, b)
	}
	if pages[1].Elements[0].Content != FallbackSpeaker+" "+ContdSuffix {
		t.Fatalf("expected fallback speaker, got %q", pages[1].Elements[0].Content)
	}
}

func TestPaginate_DialogueExactlyFillingPage(t *testing.T) {
	pages := Paginate([]domain.Element{dialogue("d1", 53)})
	if len(pages) != 1 || len(pages[0].Elements) != 1 || pages[0].Elements[0].ID != "d1" {
		t.Fatalf("expected whole dialogue on one page, got %+v", pages)
	}
}

func TestPaginate_SceneHeadingNeverSplit(t *testing.T) {
	els := []domain.Element{
		action("a1", 51),
		{ID: "s1", Type: domain.SceneHeading, Content: "EXT. FIELD - NIGHT"},
	}
	pages := Paginate(els)
	if len(pages) != 2 || pages[1].Elements[0].ID != "s1" {
		t.Fatalf("expected scene heading deferred to page 2, got %+v", pages)
	}
	// lead-in collapses at the top of the page
	if used := DefaultLayout().Summarize(pages).LinesUsed[1]; used != 1 {
		t.Fatalf("expected 1 used line on page 2, got %d", used)
	}
}

func TestPaginate_ForcedOverflowDoesNotEmitEmptyPages(t *testing.T) {
	els := []domain.Element{action("big", 70), action("a2", 1)}
	pages := Paginate(els)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for _, p := range pages {
		if len(p.Elements) == 0 {
			t.Fatalf("empty page %d", p.PageNumber)
		}
	}
	if pages[0].Elements[0].ID != "big" || pages[1].Elements[0].ID != "a2" {
		t.Fatalf("unexpected layout: %+v", pages)
	}
}

func TestPaginate_SkipsMalformed(t *testing.T) {
	els := []domain.Element{
		{Type: domain.Action, Content: "no id"},
		{ID: "x", Content: "no type"},
		action("ok", 1),
	}
	m := CalculatePagination(els)
	if len(m) != 1 || m["ok"] != 1 {
		t.Fatalf("expected only the well-formed element, got %v", m)
	}
}

func TestPaginate_DoesNotMutateInput(t *testing.T) {
	els := []domain.Element{action("a1", 43), character("c1", "BOB"), dialogue("d1", 10)}
	orig := append([]domain.Element(nil), els...)
	_ = Paginate(els)
	if !reflect.DeepEqual(els, orig) {
		t.Fatalf("input was modified")
	}
}

func TestPaginate_CustomLayout(t *testing.T) {
	l := DefaultLayout()
	l.PageLines = 10
	els := []domain.Element{action("a1", 4), action("a2", 4), action("a3", 4)}
	pages := l.Paginate(els)
	// a1: 1+4=5; a2: 5+5=10; a3 overflows
	if len(pages) != 2 || len(pages[0].Elements) != 2 {
		t.Fatalf("unexpected custom layout pagination: %+v", pages)
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name                 string
		line, spacing, total int
		splittable, fresh    bool
		want                 decision
		wantAt               int
	}{
		{"fits", 1, 0, 10, true, true, place, 0},
		{"fits exactly", 44, 0, 10, true, false, place, 0},
		{"non-dialogue overflow", 50, 1, 10, false, false, deferWhole, 0},
		{"non-dialogue on empty page", 1, 0, 80, false, true, force, 0},
		{"split", 46, 0, 10, true, false, split, 7},
		{"orphan guard", 53, 0, 10, true, false, deferWhole, 0},
		{"widow guard", 46, 0, 9, true, false, deferWhole, 0},
		{"split needs two lines before more", 52, 0, 10, true, false, deferWhole, 0},
		{"fresh widow", 1, 0, 54, true, true, split, 52},
		{"fresh tiny page", 1, 0, 3, true, true, force, 0},
	}
	for _, c := range cases {
		pageLines := PageLines
		if c.name == "fresh tiny page" {
			pageLines = 3
		}
		got, at := decide(c.line, pageLines, c.spacing, c.total, c.splittable, c.fresh)
		if got != c.want || at != c.wantAt {
			t.Fatalf("%s: decide = %s@%d, want %s@%d", c.name, got, at, c.want, c.wantAt)
		}
	}
}

// TestPaginate_Properties checks ordering, capacity, conservation, guard and
// id recovery over generated scripts.
func TestPaginate_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	grid := textlayout.DefaultGrid()
	for iter := 0; iter < 200; iter++ {
		var els []domain.Element
		n := 20 + rng.Intn(60)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("e%d", i)
			switch rng.Intn(5) {
			case 0:
				els = append(els, domain.Element{ID: id, Type: domain.SceneHeading, Content: "INT. ROOM - DAY"})
			case 1:
				els = append(els, action(id, 1+rng.Intn(6)))
			case 2:
				els = append(els, character(id, "ZED"))
			case 3:
				els = append(els, dialogue(id, 1+rng.Intn(40)))
			default:
				els = append(els, domain.Element{ID: id, Type: domain.Parenthetical, Content: "(beat)"})
			}
		}
		pages := Paginate(els)
		again := Paginate(els)
		if !reflect.DeepEqual(pages, again) {
			t.Fatalf("pagination not deterministic")
		}

		inputIDs := map[string]domain.Element{}
		for _, el := range els {
			inputIDs[el.ID] = el
		}
		fragLines := map[string]int{}
		prevPage := 0
		for pi, p := range pages {
			if p.PageNumber != pi+1 || p.PageNumber < prevPage {
				t.Fatalf("page numbers out of order: %d at %d", p.PageNumber, pi)
			}
			prevPage = p.PageNumber
			for _, el := range p.Elements {
				orig, ok := inputIDs[OriginalID(el.ID)]
				if !ok {
					t.Fatalf("unrecoverable id %q", el.ID)
				}
				if el.Type == domain.Dialogue && !el.Synthetic {
					k := len(grid.Lines(el))
					fragLines[orig.ID] += k
					if (el.ContinuesNext || el.IsContinued) && k < minFragment {
						t.Fatalf("fragment %s has %d lines", el.ID, k)
					}
				}
			}
		}
		for id, got := range fragLines {
			if want := len(grid.Lines(inputIDs[id])); got != want {
				t.Fatalf("dialogue %s: %d lines after split, want %d", id, got, want)
			}
		}
		sum := DefaultLayout().Summarize(pages)
		for i, used := range sum.LinesUsed {
			if used+1 > PageLines {
				t.Fatalf("page %d over capacity: %d lines", i+1, used)
			}
		}
		m := PageMap(pages)
		if len(m) != len(els) {
			t.Fatalf("page map has %d ids, want %d", len(m), len(els))
		}
	}
}
