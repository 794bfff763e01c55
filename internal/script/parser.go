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
	"bufio"
	"regexp"
	"strings"
	"unicode"

	"goscreenwriter/internal/domain"
)

var (
	reSceneHeading = regexp.MustCompile(`^(?i)(INT\./EXT|INT/EXT|I/E|INT|EXT|EST)[\. ]`)
	reTitleKey     = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s*(.*)$`)
	reExtension    = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	reNote         = regexp.MustCompile(`(?s)\[\[.*?\]\]`)
	reBoneyard     = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Parse reads a plain-text screenplay in a Fountain-like subset and returns the
// ordered element sequence.
// Supported syntax:
//   - Scene headings: INT. / EXT. / EST. / INT./EXT. / I/E after a blank line, or forced with a leading ".".
//   - Transitions: an uppercase line ending in "TO:" surrounded by blank lines, or forced with ">".
//   - Characters: an uppercase line after a blank line, immediately followed by text. "@" forces,
//     a trailing "^" marks dual dialogue.
//   - Parentheticals: "(...)" lines inside a dialogue block.
//   - Action: everything else. "!" forces. Adjacent lines form one paragraph.
//
// [[notes]] and /* boneyard */ are removed; "#" section and "=" synopsis lines are ignored.
func Parse(input string) ([]domain.Element, []Error) {
	sp, errs := ParseScreenplay(input)
	return sp.Elements, errs
}

// ParseScreenplay is Parse plus an optional leading title page ("Title:", "Author:", ...).
func ParseScreenplay(input string) (domain.Screenplay, []Error) {
	text := strings.ReplaceAll(input, "\r\n", "\n")
	var errs []Error
	text, errs = strip(text, reBoneyard, "/*", "unterminated boneyard comment", errs)
	text, errs = strip(text, reNote, "[[", "unterminated note", errs)

	lines, err := splitLines(text)
	if err != nil {
		errs = append(errs, Error{Line: len(lines) + 1, Column: 1, Message: err.Error()})
	}
	sp := domain.Screenplay{Elements: []domain.Element{}}
	start := titlePage(lines, &sp)

	p := &parser{lines: lines, out: []domain.Element{}}
	for i := start; i < len(lines); i++ {
		p.line(i)
	}
	p.flush()
	sp.Elements = p.out
	return sp, errs
}

// strip removes every match of re while keeping newlines so that line numbers survive.
// An opening marker without a match is reported and dropped to the end of the text.
func strip(text string, re *regexp.Regexp, open, msg string, errs []Error) (string, []Error) {
	text = re.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("\n", strings.Count(m, "\n"))
	})
	if at := strings.Index(text, open); at >= 0 {
		line := strings.Count(text[:at], "\n") + 1
		col := at - strings.LastIndex(text[:at], "\n")
		errs = append(errs, Error{Line: line, Column: col, Message: msg})
		text = text[:at] + strings.Repeat("\n", strings.Count(text[at:], "\n"))
	}
	return text, errs
}

func splitLines(text string) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t"))
	}
	return lines, sc.Err()
}

// titlePage consumes "Key: value" lines at the very top of the document and
// returns the index of the first body line.
func titlePage(lines []string, sp *domain.Screenplay) int {
	if len(lines) == 0 {
		return 0
	}
	if m := reTitleKey.FindStringSubmatch(lines[0]); m == nil || !isTitleKey(m[1]) {
		return 0
	}
	i := 0
	key := ""
	for ; i < len(lines) && strings.TrimSpace(lines[i]) != ""; i++ {
		l := lines[i]
		if m := reTitleKey.FindStringSubmatch(l); m != nil && isTitleKey(m[1]) {
			key = strings.ToLower(m[1])
			setTitleField(sp, key, strings.TrimSpace(m[2]))
			continue
		}
		// indented continuation of the previous key
		setTitleField(sp, key, strings.TrimSpace(l))
	}
	return i
}

func isTitleKey(k string) bool {
	switch strings.ToLower(k) {
	case "title", "credit", "author", "authors", "source", "draft date", "draft", "contact", "notes", "copyright":
		return true
	}
	return false
}

func setTitleField(sp *domain.Screenplay, key, v string) {
	if v == "" {
		return
	}
	add := func(dst *string) {
		if *dst == "" {
			*dst = v
		} else {
			*dst += "\n" + v
		}
	}
	switch key {
	case "title":
		add(&sp.Title)
	case "author", "authors":
		add(&sp.Metadata.Author)
	case "draft", "draft date":
		add(&sp.Metadata.Draft)
	case "contact":
		add(&sp.Metadata.Contact)
	case "notes":
		add(&sp.Metadata.Notes)
	}
}

type parser struct {
	lines   []string
	out     []domain.Element
	scene   string // id of the current scene heading
	speaker string // active dialogue block speaker, "" outside dialogue
	action  []string
}

func (p *parser) blank(i int) bool {
	return i < 0 || i >= len(p.lines) || strings.TrimSpace(p.lines[i]) == ""
}

func (p *parser) emit(t domain.ElementType, content string) {
	el := domain.Element{
		Type:     t,
		Content:  content,
		Sequence: len(p.out),
		SceneID:  p.scene,
	}
	el.ID = ElementID(el.Sequence, t, content)
	switch t {
	case domain.SceneHeading:
		p.scene = el.ID
		el.SceneID = el.ID
	case domain.Dialogue, domain.Parenthetical:
		el.Character = p.speaker
	}
	p.out = append(p.out, el)
}

func (p *parser) flush() {
	if len(p.action) > 0 {
		p.emit(domain.Action, strings.Join(p.action, "\n"))
		p.action = nil
	}
}

func (p *parser) line(i int) {
	raw := p.lines[i]
	trim := strings.TrimSpace(raw)
	if trim == "" {
		p.flush()
		p.speaker = ""
		return
	}
	if strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, "=") {
		return
	}

	if p.speaker != "" {
		if strings.HasPrefix(trim, "(") && strings.HasSuffix(trim, ")") {
			p.emit(domain.Parenthetical, trim)
			return
		}
		if n := len(p.out); n > 0 && p.out[n-1].Type == domain.Dialogue {
			p.out[n-1].Content += "\n" + trim
			p.out[n-1].ID = ElementID(p.out[n-1].Sequence, domain.Dialogue, p.out[n-1].Content)
			return
		}
		p.emit(domain.Dialogue, trim)
		return
	}

	afterBlank := p.blank(i - 1)
	switch {
	case strings.HasPrefix(trim, "!"):
		p.action = append(p.action, strings.TrimSpace(trim[1:]))
		return
	case strings.HasPrefix(trim, ".") && !strings.HasPrefix(trim, "..") && len(trim) > 1:
		p.flush()
		p.emit(domain.SceneHeading, strings.TrimSpace(trim[1:]))
		return
	case afterBlank && reSceneHeading.MatchString(trim):
		p.flush()
		p.emit(domain.SceneHeading, strings.ToUpper(trim))
		return
	case strings.HasPrefix(trim, ">") && !strings.HasSuffix(trim, "<"):
		p.flush()
		p.emit(domain.Transition, strings.ToUpper(strings.TrimSpace(trim[1:])))
		return
	case afterBlank && p.blank(i+1) && isUpper(trim) && strings.HasSuffix(trim, "TO:"):
		p.flush()
		p.emit(domain.Transition, trim)
		return
	}

	if afterBlank && !p.blank(i+1) {
		forced := strings.HasPrefix(trim, "@")
		if forced || isUpper(trim) {
			p.flush()
			name := strings.TrimPrefix(trim, "@")
			dual := strings.HasSuffix(name, "^")
			name = strings.TrimSpace(strings.TrimSuffix(name, "^"))
			p.emit(domain.Character, name)
			last := &p.out[len(p.out)-1]
			last.Dual = dual
			last.Character = characterName(name)
			p.speaker = last.Character
			return
		}
	}

	p.action = append(p.action, trim)
}

// characterName drops extensions such as "(V.O.)" or "(CONT'D)".
func characterName(s string) string {
	for {
		next := reExtension.ReplaceAllString(s, "")
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
}

// isUpper reports whether s has at least one letter and no lowercase letters.
func isUpper(s string) bool {
	letter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letter = true
		}
	}
	return letter
}
