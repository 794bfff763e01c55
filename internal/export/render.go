/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders paginated screenplays to print and preview formats.
// Every exporter works from the same Render plan so that page breaks, (MORE)
// lines and continuation headers match the pager exactly.
package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
)

// Column offsets from the left margin, in Courier cells (10 per inch).
const (
	ColumnAction        = 0
	ColumnCharacter     = 22
	ColumnDialogue      = 10
	ColumnParenthetical = 16
	// RightEdge is the last usable column; transitions are right-aligned to it.
	RightEdge = 60
)

// Line is one rendered row of a page. Blank rows have an empty Text.
type Line struct {
	Column int
	Text   string
	Kind   domain.ElementType
}

// RenderedPage is a page laid out as rows on the character grid.
type RenderedPage struct {
	Number int
	Lines  []Line
}

func column(t domain.ElementType, text string) int {
	switch t {
	case domain.Character:
		return ColumnCharacter
	case domain.Dialogue:
		return ColumnDialogue
	case domain.Parenthetical:
		return ColumnParenthetical
	case domain.Transition:
		if c := RightEdge - utf8.RuneCountInString(text); c > 0 {
			return c
		}
		return 0
	default:
		return ColumnAction
	}
}

// Render lays pages out row by row using the same metrics as the pager.
// Lead-in blanks are skipped at the top of a page and split fragments get a (MORE) row.
func Render(l pager.Layout, pages []domain.Page) []RenderedPage {
	if l.PageLines <= 0 {
		l = pager.DefaultLayout()
	}
	if l.Grid.Widths == nil {
		l.Grid = pager.DefaultLayout().Grid
	}
	out := make([]RenderedPage, 0, len(pages))
	for _, p := range pages {
		rp := RenderedPage{Number: p.PageNumber}
		for _, el := range p.Elements {
			for i := l.Grid.LeadIn(el.Type, len(rp.Lines) == 0); i > 0; i-- {
				rp.Lines = append(rp.Lines, Line{Kind: el.Type})
			}
			for _, text := range l.Grid.Lines(el) {
				text = styled(el.Type, text)
				rp.Lines = append(rp.Lines, Line{Column: column(el.Type, text), Text: text, Kind: el.Type})
			}
			if el.ContinuesNext && el.Notes == pager.MoreMarker {
				rp.Lines = append(rp.Lines, Line{Column: ColumnCharacter, Text: pager.MoreMarker, Kind: domain.Character})
			}
		}
		out = append(out, rp)
	}
	return out
}

// styled applies the case conventions of the element type.
func styled(t domain.ElementType, s string) string {
	switch t {
	case domain.SceneHeading, domain.Character, domain.Transition:
		return strings.ToUpper(s)
	}
	return s
}

// slug turns a title into a file name stem.
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "screenplay"
	}
	return s
}
