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
	"os"
	"path/filepath"
	"testing"
	"time"

	"goscreenwriter/internal/pager"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	sp := sampleScreenplay()
	if _, err := InitProject(root, sp); err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	idx := IndexPath(root)
	if err := os.MkdirAll(filepath.Dir(idx), 0o755); err != nil {
		t.Fatalf("mk .gsw: %v", err)
	}
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := DetectAndRebuildIndex(ctx, root, sp, pager.DefaultLayout())
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	pm, err := LoadPageMap(ctx, root)
	if err != nil {
		t.Fatalf("LoadPageMap: %v", err)
	}
	if len(pm) != len(sp.Elements) || pm["d1"] != 1 {
		t.Fatalf("rebuilt page map = %v", pm)
	}
	bdir := filepath.Join(root, IndexDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}

	rebuilt, err = DetectAndRebuildIndex(ctx, root, sp, pager.DefaultLayout())
	if err != nil || rebuilt {
		t.Fatalf("healthy index should not be rebuilt: rebuilt=%v err=%v", rebuilt, err)
	}
}
