/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the screenplay data model shared by the parser, the pager,
// storage and the exporters. The authoritative document is the ordered Elements
// slice of a Screenplay; pages are a derived projection and never persisted.

// ElementType is the kind of a screenplay element. It selects wrap width and
// vertical spacing.
type ElementType string

const (
	SceneHeading  ElementType = "scene_heading"
	Action        ElementType = "action"
	Character     ElementType = "character"
	Dialogue      ElementType = "dialogue"
	Parenthetical ElementType = "parenthetical"
	Transition    ElementType = "transition"
)

// AllElementTypes lists the known element types in canonical order.
func AllElementTypes() []ElementType {
	return []ElementType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition}
}

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case SceneHeading, Action, Character, Dialogue, Parenthetical, Transition:
		return true
	}
	return false
}

// Element is the atomic unit of a screenplay.
// Sequence is a denormalized order hint; slice order is authoritative.
// IsContinued/ContinuesNext are written back after pagination. Notes is used
// transiently to tag a split fragment that carries "(MORE)".
type Element struct {
	ID            string      `json:"id"`
	Type          ElementType `json:"type"`
	Content       string      `json:"content"`
	Sequence      int         `json:"sequence"`
	Character     string      `json:"character,omitempty"`
	SceneID       string      `json:"sceneId,omitempty"`
	Dual          bool        `json:"dual,omitempty"`
	IsContinued   bool        `json:"isContinued,omitempty"`
	ContinuesNext bool        `json:"continuesNext,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	// Synthetic marks elements built by the pager (CONT'D headers) that have
	// no counterpart in the authoritative sequence.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Malformed reports whether the element lacks the fields required for pagination.
func (e Element) Malformed() bool {
	return e.ID == "" || e.Type == ""
}

// Page is one paginated page. PageNumber is 1-based.
type Page struct {
	PageNumber int       `json:"pageNumber"`
	Elements   []Element `json:"elements"`
}

// Screenplay is the persisted project document (screenplay.json).
type Screenplay struct {
	Title    string    `json:"title"`
	Metadata Metadata  `json:"metadata,omitempty"`
	Elements []Element `json:"elements"`
}

// Metadata contains optional title-page information.
type Metadata struct {
	Author  string `json:"author,omitempty"`
	Draft   string `json:"draft,omitempty"`
	Contact string `json:"contact,omitempty"`
	Notes   string `json:"notes,omitempty"`
}
