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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pager"
)

// PaginationRun is one recorded pagination of the project.
type PaginationRun struct {
	TS          time.Time
	Fingerprint string
	Pages       int
	Elements    int
	Splits      int
}

// language=SQL
// dialect=SQLite
const insertPaginationRunSQL = `INSERT INTO pagination_runs(ts, fingerprint, pages, elements, splits) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listPaginationRunsSQL = `SELECT ts, fingerprint, pages, elements, splits FROM pagination_runs ORDER BY ts DESC, id DESC LIMIT ?`

// RecordPagination replaces the indexed elements and page map with the given result and appends a
// pagination_runs row. pages must come from paginating elements with l.
func RecordPagination(ctx context.Context, projectRoot string, l pager.Layout, elements []domain.Element, pages []domain.Page) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	return recordPagination(ctx, db, l, elements, pages, time.Now())
}

func recordPagination(ctx context.Context, db *sql.DB, l pager.Layout, elements []domain.Element, pages []domain.Page, ts time.Time) error {
	pm := pager.PageMap(pages)
	sum := l.Summarize(pages)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	rollback := func(err error) error {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM elements;"); err != nil {
		return rollback(fmt.Errorf("clear elements: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM page_map;"); err != nil {
		return rollback(fmt.Errorf("clear page_map: %w", err))
	}
	insEl, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO elements(element_id, seq, type, character, scene_id, content) VALUES(?,?,?,?,?,?);")
	if err != nil {
		return rollback(fmt.Errorf("prepare element insert: %w", err))
	}
	defer insEl.Close()
	for i, el := range elements {
		if el.Malformed() {
			continue
		}
		if _, err := insEl.ExecContext(ctx, el.ID, i, string(el.Type), nullString(el.Character), nullString(el.SceneID), el.Content); err != nil {
			return rollback(fmt.Errorf("insert element: %w", err))
		}
	}
	insPage, err := tx.PrepareContext(ctx, "INSERT INTO page_map(element_id, page) VALUES(?,?);")
	if err != nil {
		return rollback(fmt.Errorf("prepare page insert: %w", err))
	}
	defer insPage.Close()
	for id, page := range pm {
		if _, err := insPage.ExecContext(ctx, id, page); err != nil {
			return rollback(fmt.Errorf("insert page_map: %w", err))
		}
	}
	fp := pager.Fingerprint(l, elements)
	if _, err := tx.ExecContext(ctx, insertPaginationRunSQL, ts.UTC().Format(time.RFC3339Nano), fp, sum.Pages, sum.Elements, sum.Splits); err != nil {
		return rollback(fmt.Errorf("insert pagination run: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// LoadPageMap returns the last recorded id -> page projection. An index without runs yields an empty map.
func LoadPageMap(ctx context.Context, projectRoot string) (map[string]int, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT element_id, page FROM page_map`)
	if err != nil {
		return nil, fmt.Errorf("page map query: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var page int
		if err := rows.Scan(&id, &page); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[id] = page
	}
	return out, rows.Err()
}

// ListPaginationRuns returns up to limit most recent runs, newest first.
func ListPaginationRuns(ctx context.Context, projectRoot string, limit int) ([]PaginationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, listPaginationRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaginationRun
	for rows.Next() {
		var r PaginationRun
		var tsStr string
		if err := rows.Scan(&tsStr, &r.Fingerprint, &r.Pages, &r.Elements, &r.Splits); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestFingerprint returns the fingerprint of the newest run, or "" when none was recorded.
func LatestFingerprint(ctx context.Context, projectRoot string) (string, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return "", err
	}
	defer db.Close()
	var fp string
	err = db.QueryRowContext(ctx, `SELECT fingerprint FROM pagination_runs ORDER BY ts DESC, id DESC LIMIT 1`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return fp, err
}
