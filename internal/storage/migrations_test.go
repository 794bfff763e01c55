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
)

// TestMigrations_UpgradeV1 ensures that an older DB (schema=1) is migrated to schemaVersion,
// gaining the page index and the splits column.
func TestMigrations_UpgradeV1(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Dir(IndexPath(root)), 0o755); err != nil {
		t.Fatalf("mk .gsw: %v", err)
	}
	db := openRaw(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE IF NOT EXISTS page_map (element_id TEXT PRIMARY KEY, page INTEGER NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS pagination_runs (id INTEGER PRIMARY KEY, ts TEXT NOT NULL, fingerprint TEXT NOT NULL, pages INTEGER NOT NULL, elements INTEGER NOT NULL);`,
		`INSERT INTO pagination_runs(ts, fingerprint, pages, elements) VALUES('2020-01-01T00:00:00Z', 'old', 3, 10);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	mdb, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer mdb.Close()
	var schema int
	if err := mdb.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d after migration, got %d", schemaVersion, schema)
	}
	var cnt int
	if err := mdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_page_map_page'`).Scan(&cnt); err != nil || cnt != 1 {
		t.Fatalf("expected page_map index after migration, got %d (%v)", cnt, err)
	}
	var splits int
	if err := mdb.QueryRowContext(ctx, `SELECT splits FROM pagination_runs WHERE fingerprint='old'`).Scan(&splits); err != nil || splits != 0 {
		t.Fatalf("splits column not added: %d %v", splits, err)
	}
	// reopening is idempotent
	again, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}
