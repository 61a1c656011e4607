package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataprep/internal/clean"
	"github.com/JonMunkholm/dataprep/internal/encoding"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/profile"
	"github.com/JonMunkholm/dataprep/internal/table"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when MaxSessions tables are already held.
	ErrTooManySessions = errors.New("too many sessions")
)

const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 100
)

// Service holds loaded tables between HTTP requests. Each table lives in
// its own session with a Cleaner; operations on one session are
// serialised, different sessions proceed in parallel.
type Service struct {
	opts    Options
	limiter *LoadLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id      string
	name    string
	created time.Time
	used    atomic.Int64 // unix nanos of the last access

	mu      sync.Mutex
	cleaner *clean.Cleaner // nil once deleted
}

// NewService creates a Service. Zero values in opts fall back to defaults.
func NewService(opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Service{
		opts:     opts,
		limiter:  NewLoadLimiter(opts.MaxConcurrentLoads, opts.MaxLoadWait),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Limiter exposes the load limiter for health reporting and shutdown.
func (s *Service) Limiter() *LoadLimiter {
	return s.limiter
}

// Load parses r as CSV and stores the table in a new session.
func (s *Service) Load(ctx context.Context, r io.Reader, req LoadRequest) (SessionInfo, error) {
	if r == nil {
		return SessionInfo{}, fmt.Errorf("%w: no file provided", table.ErrInvalidArgument)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return SessionInfo{}, err
	}
	defer s.limiter.Release()

	if s.Len() >= s.opts.MaxSessions {
		return SessionInfo{}, ErrTooManySessions
	}

	logger := logging.FromContext(ctx)
	opts := s.opts.Load
	opts.Logger = logger
	if req.Delimiter != 0 {
		opts.Delimiter = req.Delimiter
	}
	if req.Encoding != "" {
		opts.Encoding = req.Encoding
	}
	opts.Lenient = opts.Lenient || req.Lenient

	if req.DetectEncoding || opts.DetectEncoding {
		data, err := readLimited(r, opts.MaxBytes)
		if err != nil {
			return SessionInfo{}, err
		}
		guess, err := encoding.DetectBytes(data)
		switch {
		case err == nil:
			opts.Encoding = guess.Label
		case errors.Is(err, table.ErrUndetectedEncoding):
			logger.Warn("encoding not detected, reading as configured", "encoding", opts.Encoding)
		default:
			return SessionInfo{}, err
		}
		r = bytes.NewReader(data)
	}

	tbl, err := loader.Read(r, opts).Unwrap()
	if err != nil {
		return SessionInfo{}, err
	}

	now := s.now()
	sess := &session{
		id:      uuid.NewString(),
		name:    req.Name,
		created: now,
		cleaner: clean.New(tbl),
	}
	sess.used.Store(now.UnixNano())

	s.mu.Lock()
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		return SessionInfo{}, ErrTooManySessions
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logger.Info("table loaded",
		"session_id", sess.id,
		"name", req.Name,
		"rows", tbl.NumRows(),
		"columns", tbl.NumCols(),
		"encoding", opts.Encoding,
	)
	return sess.info(tbl), nil
}

// readLimited reads all of r, failing with loader.ErrTooLarge past max bytes.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, loader.ErrTooLarge
	}
	return data, nil
}

// Len returns the number of held tables.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List describes every held table, oldest first.
func (s *Service) List(ctx context.Context) []SessionInfo {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		if sess.cleaner != nil {
			if t, err := sess.cleaner.Table(); err == nil {
				infos = append(infos, sess.info(t))
			}
		}
		sess.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Info describes one held table.
func (s *Service) Info(ctx context.Context, id string) (SessionInfo, error) {
	var info SessionInfo
	err := s.with(ctx, id, func(sess *session, c *clean.Cleaner) error {
		t, err := c.Table()
		if err != nil {
			return err
		}
		info = sess.info(t)
		return nil
	})
	return info, err
}

// Delete releases a held table.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.release()
	logging.FromContext(ctx).Info("table released", "session_id", id)
	return nil
}

// Close releases every held table.
func (s *Service) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.release()
	}
}

// Export writes the held table as delimited text.
func (s *Service) Export(ctx context.Context, id string, w io.Writer, delimiter rune) error {
	return s.with(ctx, id, func(_ *session, c *clean.Cleaner) error {
		t, err := c.Table()
		if err != nil {
			return err
		}
		return t.WriteCSV(w, delimiter)
	})
}

// Rows returns a copy of the held table.
func (s *Service) Rows(ctx context.Context, id string) (*table.Table, error) {
	var out *table.Table
	err := s.with(ctx, id, func(_ *session, c *clean.Cleaner) error {
		t, err := c.Table()
		if err != nil {
			return err
		}
		out = t.Copy()
		return nil
	})
	return out, err
}

// FilterRows filters the held table in place of the old one.
func (s *Service) FilterRows(ctx context.Context, id, column string, opts clean.FilterOptions) (SessionInfo, error) {
	return s.mutate(ctx, id, func(c *clean.Cleaner) (*table.Table, error) {
		return c.FilterRows(column, opts)
	})
}

// CleanColumns strips characters from columns of the held table.
func (s *Service) CleanColumns(ctx context.Context, id string, rules []clean.Rule) (SessionInfo, error) {
	return s.mutate(ctx, id, func(c *clean.Cleaner) (*table.Table, error) {
		return c.CleanColumns(rules)
	})
}

// ToInteger converts columns of the held table to integers.
func (s *Service) ToInteger(ctx context.Context, id string, columns []string) (SessionInfo, error) {
	return s.mutate(ctx, id, func(c *clean.Cleaner) (*table.Table, error) {
		return c.ToInteger(columns)
	})
}

// SpecialCharacters reports special characters in the text columns.
func (s *Service) SpecialCharacters(ctx context.Context, id string) (SpecialCharacterReport, error) {
	var report SpecialCharacterReport
	err := s.with(ctx, id, func(_ *session, c *clean.Cleaner) error {
		summary, err := c.SummarizeSpecialCharacters()
		if err != nil {
			return err
		}
		found, err := c.FindSpecialCharacters()
		if err != nil {
			return err
		}
		report.Summary = summary
		report.ByColumn = make(map[string][]string, len(found))
		for col, set := range found {
			report.ByColumn[col] = set.Sorted()
		}
		return nil
	})
	return report, err
}

// OverlongValues reports rows whose value in column exceeds maxLength characters.
func (s *Service) OverlongValues(ctx context.Context, id, column string, maxLength int) (clean.OverlongReport, error) {
	var report clean.OverlongReport
	err := s.with(ctx, id, func(_ *session, c *clean.Cleaner) error {
		var err error
		report, err = c.ReportOverlongValues(column, maxLength)
		return err
	})
	return report, err
}

// Profile returns a profiler over a snapshot of the held table.
func (s *Service) Profile(ctx context.Context, id string) (*profile.Profiler, error) {
	var p *profile.Profiler
	err := s.with(ctx, id, func(_ *session, c *clean.Cleaner) error {
		t, err := c.Table()
		if err != nil {
			return err
		}
		p, err = profile.New(t)
		return err
	})
	return p, err
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*clean.Cleaner) (*table.Table, error)) (SessionInfo, error) {
	var info SessionInfo
	err := s.with(ctx, id, func(sess *session, c *clean.Cleaner) error {
		t, err := fn(c)
		if err != nil {
			return err
		}
		info = sess.info(t)
		return nil
	})
	return info, err
}

// with runs fn while holding the session lock and marks the session used.
func (s *Service) with(ctx context.Context, id string, fn func(*session, *clean.Cleaner) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cleaner == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.used.Store(s.now().UnixNano())
	sess.cleaner.WithLogger(logging.FromContext(logging.WithSession(ctx, id)))
	return fn(sess, sess.cleaner)
}

// info must be called with sess.mu held or before the session is shared.
func (sess *session) info(t *table.Table) SessionInfo {
	return SessionInfo{
		ID:        sess.id,
		Name:      sess.name,
		Rows:      t.NumRows(),
		Columns:   t.Names(),
		CreatedAt: sess.created,
		LastUsed:  time.Unix(0, sess.used.Load()),
	}
}

func (sess *session) release() {
	sess.mu.Lock()
	if sess.cleaner != nil {
		sess.cleaner.Release()
		sess.cleaner = nil
	}
	sess.mu.Unlock()
}
