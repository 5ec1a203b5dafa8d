// Package engine executes SQL queries against named views over CSV and
// parquet storage.
//
// A Session holds the registered views. Each view is backed by a DataSource;
// queries against an uncached view re-load the rows from storage on every
// execution, while Cache pins the rows in memory so subsequent queries skip
// the load entirely. Materialize rewrites a view as a partitioned parquet
// directory and rebinds the view to it, which is how the benchmark switches
// a table from CSV to parquet storage.
package engine

import (
	"fmt"
	"sync"

	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/query"
	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/reader"
)

// Options control query planning and materialization behavior
type Options struct {
	// AdaptiveExecution reorders conjunctive WHERE predicates so equality
	// comparisons are evaluated first
	AdaptiveExecution bool
	// CoalescePartitions writes each partition as a single part file instead
	// of fixed-size chunks
	CoalescePartitions bool
}

// view is a named relation inside a session
type view struct {
	source DataSource
	cached []map[string]interface{}
}

// Session executes SQL against registered views
type Session struct {
	mu      sync.RWMutex
	opts    Options
	views   map[string]*view
	stopped bool
}

// NewSession creates a session with the given options
func NewSession(opts Options) *Session {
	return &Session{
		opts:  opts,
		views: make(map[string]*view),
	}
}

// CreateOrReplaceView registers a named view over a data source, replacing
// any existing view with the same name. Replacing a view drops its cache.
func (s *Session) CreateOrReplaceView(name string, source DataSource) error {
	if err := query.ValidateTableName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("session is stopped")
	}
	s.views[name] = &view{source: source}
	return nil
}

// SQL parses a query and returns a lazy result bound to this session.
// Nothing is loaded or executed until Collect is called.
func (s *Session) SQL(text string) (*Result, error) {
	q, err := query.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	return &Result{session: s, query: q}, nil
}

// Collect parses and executes a query in one step
func (s *Session) Collect(text string) ([]map[string]interface{}, error) {
	result, err := s.SQL(text)
	if err != nil {
		return nil, err
	}
	return result.Collect()
}

// Cache pins a view's rows in memory. The rows are loaded once from the
// view's current source; later queries read the pinned copy.
func (s *Session) Cache(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.views[name]
	if !exists {
		return fmt.Errorf("unknown table: %s", name)
	}
	if v.cached != nil {
		return nil
	}

	rows, err := v.source.Load()
	if err != nil {
		return fmt.Errorf("failed to cache %s: %w", name, err)
	}
	v.cached = rows
	return nil
}

// Uncache drops a view's pinned rows. Uncaching a view that is not cached
// is a no-op.
func (s *Session) Uncache(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.views[name]
	if !exists {
		return fmt.Errorf("unknown table: %s", name)
	}
	v.cached = nil
	return nil
}

// IsCached reports whether a view currently has pinned rows
func (s *Session) IsCached(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.views[name]
	return exists && v.cached != nil
}

// Materialize writes a view's rows as a partitioned parquet directory and
// rebinds the view to read from it. The view's cache is dropped so queries
// hit the new storage.
func (s *Session) Materialize(name, dir, partitionBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.views[name]
	if !exists {
		return fmt.Errorf("unknown table: %s", name)
	}

	rows := v.cached
	if rows == nil {
		var err error
		rows, err = v.source.Load()
		if err != nil {
			return fmt.Errorf("failed to load %s for materialization: %w", name, err)
		}
	}

	if err := reader.WritePartitioned(rows, dir, partitionBy, s.opts.CoalescePartitions); err != nil {
		return fmt.Errorf("failed to materialize %s: %w", name, err)
	}

	v.source = NewParquetSource(dir)
	v.cached = nil
	return nil
}

// Stop drops all views and caches. The session cannot be used afterwards.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = make(map[string]*view)
	s.stopped = true
}

// load returns the rows for a view, reading from the pinned copy when the
// view is cached and from storage otherwise.
func (s *Session) load(name string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	v, exists := s.views[name]
	if !exists {
		s.mu.RUnlock()
		return nil, fmt.Errorf("unknown table: %s", name)
	}
	cached := v.cached
	source := v.source
	s.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}
	return source.Load()
}

// Result is a lazily-executed query. Collect runs the full pipeline:
// load, filter, aggregate or project, order, then limit.
type Result struct {
	session *Session
	query   *query.Query
}

// Collect executes the query and returns the result rows
func (r *Result) Collect() ([]map[string]interface{}, error) {
	rows, err := r.session.load(r.query.TableName)
	if err != nil {
		return nil, err
	}

	filter := r.query.Filter
	if r.session.opts.AdaptiveExecution {
		filter = optimizeFilter(filter)
	}

	filtered, err := query.ApplyFilter(rows, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to apply filter: %w", err)
	}

	var projected []map[string]interface{}
	if len(r.query.GroupBy) > 0 || query.HasAggregateFunction(r.query.SelectList) {
		projected, err = query.ApplyGroupByAndAggregate(filtered, r.query.GroupBy, r.query.SelectList)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate: %w", err)
		}
	} else {
		projected, err = query.ApplySelectList(filtered, r.query.SelectList)
		if err != nil {
			return nil, fmt.Errorf("failed to apply select list: %w", err)
		}
	}

	ordered, err := query.ApplyOrderBy(projected, r.query.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("failed to apply order by: %w", err)
	}

	limited, err := query.ApplyLimitOffset(ordered, r.query.Limit, r.query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to apply limit/offset: %w", err)
	}

	return limited, nil
}

// Count executes the query and returns only the number of result rows
func (r *Result) Count() (int64, error) {
	rows, err := r.Collect()
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
