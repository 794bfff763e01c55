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
	"strings"
)

// SearchQuery describes an element search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Types restricts to element types such as dialogue or action.
// PageFrom/To are inclusive; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Character string
	SceneID   string
	Types     []string
	PageFrom  int
	PageTo    int
	Limit     int
	Offset    int
}

// SearchResult represents a single matching element.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used, else the start of the content.
// Page is 0 when the element has not been paginated yet.
type SearchResult struct {
	ElementID string
	Type      string
	Character string
	Page      int
	Snippet   string
}

// Search performs full-text search with optional filters over the indexed elements.
// When q.Text is empty, it falls back to a plain scan with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT e.element_id, e.type, COALESCE(e.character,''), COALESCE(p.page,0), snippet(fts_elements, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_elements JOIN elements e ON fts_elements.rowid = e.row_id\n")
		sb.WriteString("LEFT JOIN page_map p ON p.element_id = e.element_id\n")
		sb.WriteString("WHERE fts_elements MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT e.element_id, e.type, COALESCE(e.character,''), COALESCE(p.page,0), substr(e.content, 1, 60)\n")
		sb.WriteString("FROM elements e LEFT JOIN page_map p ON p.element_id = e.element_id\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND e.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		sb.WriteString(" AND p.page BETWEEN ? AND ?\n")
		args = append(args, q.PageFrom, q.PageTo)
	} else if q.PageFrom > 0 {
		sb.WriteString(" AND p.page >= ?\n")
		args = append(args, q.PageFrom)
	} else if q.PageTo > 0 {
		sb.WriteString(" AND p.page <= ?\n")
		args = append(args, q.PageTo)
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND lower(e.character) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.SceneID); s != "" {
		sb.WriteString(" AND e.scene_id = ?\n")
		args = append(args, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY e.seq\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.ElementID, &r.Type, &r.Character, &r.Page, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
