/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"unicode/utf8"

	"goscreenwriter/internal/domain"
)

// MeasureLines greedily word-wraps text into lines of at most maxWidth runes.
// Tokens longer than maxWidth are hard-split into maxWidth-sized chunks; the
// last chunk seeds the next line. Empty or whitespace-only text yields no lines.
func MeasureLines(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 1
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			lines = append(lines, cur.String())
		}
		cur.Reset()
		curLen = 0
	}
	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		switch {
		case n > maxWidth:
			flush()
			chunks := chunkRunes(tok, maxWidth)
			lines = append(lines, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			cur.WriteString(last)
			curLen = utf8.RuneCountInString(last)
		case curLen > 0 && curLen+1+n > maxWidth:
			flush()
			cur.WriteString(tok)
			curLen = n
		default:
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(tok)
			curLen += n
		}
	}
	flush()
	return lines
}

// chunkRunes splits s into pieces of at most size runes.
func chunkRunes(s string, size int) []string {
	r := []rune(s)
	out := make([]string, 0, len(r)/size+1)
	for len(r) > size {
		out = append(out, string(r[:size]))
		r = r[size:]
	}
	return append(out, string(r))
}

// Grid describes the monospaced character grid of a screenplay page:
// the wrap width and the lead-in blank lines for each element type.
type Grid struct {
	Widths  map[domain.ElementType]int
	LeadIns map[domain.ElementType]int
}

// Widths and lead-ins of the US-Letter, 12pt Courier screenplay format.
const (
	WidthSceneHeading  = 60
	WidthAction        = 60
	WidthCharacter     = 35
	WidthDialogue      = 35
	WidthParenthetical = 25
	WidthTransition    = 20
)

// DefaultGrid returns the standard screenplay grid.
func DefaultGrid() Grid {
	return Grid{
		Widths: map[domain.ElementType]int{
			domain.SceneHeading:  WidthSceneHeading,
			domain.Action:        WidthAction,
			domain.Character:     WidthCharacter,
			domain.Dialogue:      WidthDialogue,
			domain.Parenthetical: WidthParenthetical,
			domain.Transition:    WidthTransition,
		},
		LeadIns: map[domain.ElementType]int{
			domain.SceneHeading:  2,
			domain.Action:        1,
			domain.Character:     1,
			domain.Transition:    1,
			domain.Dialogue:      0,
			domain.Parenthetical: 0,
		},
	}
}

// Width returns the wrap width for t. Unknown types use the action width.
func (g Grid) Width(t domain.ElementType) int {
	if w, ok := g.Widths[t]; ok && w > 0 {
		return w
	}
	if w, ok := g.Widths[domain.Action]; ok && w > 0 {
		return w
	}
	return WidthAction
}

// LeadIn returns the blank lines placed before an element of type t.
// Spacing collapses to zero at the top of a page.
func (g Grid) LeadIn(t domain.ElementType, firstOnPage bool) int {
	if firstOnPage {
		return 0
	}
	if n, ok := g.LeadIns[t]; ok {
		return n
	}
	if n, ok := g.LeadIns[domain.Action]; ok {
		return n
	}
	return 1
}

// Lines wraps the element content at its type's width.
func (g Grid) Lines(el domain.Element) []string {
	return MeasureLines(el.Content, g.Width(el.Type))
}

// Height is the number of lines the element occupies, lead-in included.
func (g Grid) Height(el domain.Element, firstOnPage bool) int {
	return len(g.Lines(el)) + g.LeadIn(el.Type, firstOnPage)
}
