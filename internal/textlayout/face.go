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

// Raster metrics for page previews. The grid is monospaced, so a single
// fixed-size face is enough to place every cell deterministically.

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Face wraps a monospaced font.Face with its cell size in pixels.
type Face struct {
	Face       font.Face
	CellWidth  int
	CellHeight int
	Ascent     int
}

// BasicFace returns the x/image basicfont 7x13 face.
func BasicFace() Face {
	f := basicfont.Face7x13
	m := f.Metrics()
	adv, _ := f.GlyphAdvance('M')
	return Face{
		Face:       f,
		CellWidth:  adv.Round(),
		CellHeight: m.Height.Round(),
		Ascent:     m.Ascent.Round(),
	}
}

// MeasureString returns the pixel width of s drawn with the face.
func (f Face) MeasureString(s string) int {
	d := &font.Drawer{Face: f.Face}
	return d.MeasureString(s).Round()
}
