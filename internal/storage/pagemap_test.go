/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
)

// longScene returns a screenplay whose dialogue straddles the first page break.
func longScene() domain.Screenplay {
	words := func(n int) string { return strings.TrimSpace(strings.Repeat("word ", n)) }
	return domain.Screenplay{Title: "Long", Elements: []domain.Element{
		{ID: "a1", Type: domain.Action, Content: words(43 * 12)}, // 43 lines at width 60
		{ID: "c1", Type: domain.Character, Content: "BOB"},
		{ID: "d1", Type: domain.Dialogue, Content: words(10 * 7), Character: "BOB"}, // 10 lines at width 35
		{ID: "a9", Type: domain.Action, Content: "The end."},
	}}
}

func TestRecordPaginationAndLoadPageMap(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	l := pager.DefaultLayout()
	sp := longScene()
	pages := l.Paginate(sp.Elements)
	if err := RecordPagination(ctx, root, l, sp.Elements, pages); err != nil {
		t.Fatalf("RecordPagination: %v", err)
	}
	pm, err := LoadPageMap(ctx, root)
	if err != nil {
		t.Fatalf("LoadPageMap: %v", err)
	}
	want := pager.PageMap(pages)
	if len(pm) != len(want) {
		t.Fatalf("page map = %v, want %v", pm, want)
	}
	for id, p := range want {
		if pm[id] != p {
			t.Fatalf("page of %s = %d, want %d", id, pm[id], p)
		}
	}
	if _, ok := pm["d1-part1"]; ok {
		t.Fatalf("fragment ids must not leak into the page map")
	}

	runs, err := ListPaginationRuns(ctx, root, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %+v, %v", runs, err)
	}
	r := runs[0]
	if r.Pages != len(pages) || r.Elements != 4 || r.Splits != 1 || r.Fingerprint != pager.Fingerprint(l, sp.Elements) {
		t.Fatalf("run = %+v", r)
	}
	if time.Since(r.TS) > time.Minute {
		t.Fatalf("run timestamp not parsed: %v", r.TS)
	}
}

func TestRecordPaginationReplacesPreviousMap(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	l := pager.DefaultLayout()
	first := longScene()
	if err := RecordPagination(ctx, root, l, first.Elements, l.Paginate(first.Elements)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	second := sampleScreenplay()
	if err := RecordPagination(ctx, root, l, second.Elements, l.Paginate(second.Elements)); err != nil {
		t.Fatalf("second record: %v", err)
	}
	pm, err := LoadPageMap(ctx, root)
	if err != nil {
		t.Fatalf("LoadPageMap: %v", err)
	}
	if _, stale := pm["a9"]; stale || len(pm) != 4 {
		t.Fatalf("page map should hold only the second screenplay: %v", pm)
	}
	if _, ok := pm["s1"]; !ok {
		t.Fatalf("missing s1: %v", pm)
	}
	fp, err := LatestFingerprint(ctx, root)
	if err != nil || fp != pager.Fingerprint(l, second.Elements) {
		t.Fatalf("latest fingerprint = %q, %v", fp, err)
	}
	runs, _ := ListPaginationRuns(ctx, root, 0)
	if len(runs) != 2 || runs[0].Fingerprint != fp {
		t.Fatalf("runs not newest first: %+v", runs)
	}
}

func TestLatestFingerprintEmpty(t *testing.T) {
	fp, err := LatestFingerprint(context.Background(), t.TempDir())
	if err != nil || fp != "" {
		t.Fatalf("fingerprint on fresh index = %q, %v", fp, err)
	}
}

func TestRebuildIndexRecomputesWithLayout(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	sp := longScene()
	if err := RebuildIndex(ctx, root, sp, pager.DefaultLayout()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	pm, _ := LoadPageMap(ctx, root)
	if pm["d1"] != 1 || pm["a9"] != 2 {
		t.Fatalf("default layout: d1 on page %d, a9 on page %d", pm["d1"], pm["a9"])
	}
	tall := pager.Layout{PageLines: 120}
	if err := RebuildIndex(ctx, root, sp, tall); err != nil {
		t.Fatalf("RebuildIndex tall: %v", err)
	}
	pm, _ = LoadPageMap(ctx, root)
	if pm["a9"] != 1 {
		t.Fatalf("tall layout: a9 on page %d, want 1", pm["a9"])
	}
}
