/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"goscreenwriter/internal/domain"
	applog "goscreenwriter/internal/log"
)

// Result is one pagination outcome delivered by a Service. Pages and PageMap
// may be shared with the memo cache and must be treated as read-only.
type Result struct {
	Generation uint64
	Pages      []domain.Page
	PageMap    map[string]int
	Cached     bool
}

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	Layout   Layout
	Debounce time.Duration // default 400ms
	CacheTTL time.Duration // default 5m
	OnResult func(Result)
	Logger   *slog.Logger
}

// Service paginates in the background for an editor. Each Schedule call
// restarts the debounce timer; only the newest request's result is delivered.
// It is safe for concurrent use.
type Service struct {
	opts  ServiceOptions
	log   *slog.Logger
	memo  *cache.Cache
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	last  *Result
	done  bool
	// serializes OnResult so a stale result cannot overtake a newer one
	deliverMu sync.Mutex
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = 400 * time.Millisecond
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	opts.Layout = opts.Layout.normalized()
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("pager")
	}
	return &Service{
		opts: opts,
		log:  l,
		memo: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// Schedule queues elements for pagination after the debounce delay and
// returns the request generation. Pending older requests are superseded.
func (s *Service) Schedule(elements []domain.Element) uint64 {
	snapshot := append([]domain.Element(nil), elements...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.gen
	}
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.Debounce, func() { s.complete(gen, snapshot) })
	return gen
}

// Run paginates synchronously, consulting the memo cache, and records the
// result as the latest one. It supersedes any pending scheduled request.
func (s *Service) Run(elements []domain.Element) Result {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	res := s.compute(gen, elements)
	s.mu.Lock()
	if gen == s.gen {
		s.last = &res
	}
	s.mu.Unlock()
	return res
}

// Latest returns the most recently delivered result.
func (s *Service) Latest() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// Close stops pending work. Results still computing are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Service) complete(gen uint64, elements []domain.Element) {
	if !s.current(gen) {
		return
	}
	res := s.compute(gen, elements)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	if gen != s.gen || s.done {
		s.mu.Unlock()
		s.log.Debug("drop stale pagination", slog.Uint64("gen", gen))
		return
	}
	s.last = &res
	s.mu.Unlock()
	if s.opts.OnResult != nil {
		s.opts.OnResult(res)
	}
}

func (s *Service) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && !s.done
}

type memoEntry struct {
	pages   []domain.Page
	pageMap map[string]int
}

func (s *Service) compute(gen uint64, elements []domain.Element) Result {
	key, err := fingerprint(s.opts.Layout, elements)
	if err == nil {
		if v, ok := s.memo.Get(key); ok {
			e := v.(memoEntry)
			return Result{Generation: gen, Pages: e.pages, PageMap: e.pageMap, Cached: true}
		}
	} else {
		s.log.Warn("fingerprint failed, skipping memo", slog.Any("err", err))
	}
	start := time.Now()
	pages := s.opts.Layout.Paginate(elements)
	pm := PageMap(pages)
	s.log.Debug("paginated", slog.Uint64("gen", gen), slog.Int("elements", len(elements)),
		slog.Int("pages", len(pages)), slog.Duration("took", time.Since(start)))
	if err == nil {
		s.memo.SetDefault(key, memoEntry{pages: pages, pageMap: pm})
	}
	return Result{Generation: gen, Pages: pages, PageMap: pm}
}

// fingerprint hashes the layout and element sequence into a memo key.
func fingerprint(l Layout, elements []domain.Element) (string, error) {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(l.PageLines)))
	grid, err := json.Marshal(l.Grid)
	if err != nil {
		return "", err
	}
	h.Write(grid)
	if err := json.NewEncoder(h).Encode(elements); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint returns the content hash the Service memoises on.
func Fingerprint(l Layout, elements []domain.Element) string {
	k, _ := fingerprint(l.normalized(), elements)
	return k
}
