// Package sessions hosts reader sessions for the HTTP bridge: it opens
// chapters into sessions, serializes calls into each one, expires idle
// sessions and delivers the reports they produce to the host's webhook.
package sessions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/hostclient"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/parser"
	"github.com/dgallion1/folio/internal/reader"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Deliverer posts report batches to the host. *hostclient.Client
// implements it.
type Deliverer interface {
	Deliver(ctx context.Context, d hostclient.Delivery) error
}

// CreateOptions configures a new session. Zero viewport dimensions take
// the configured defaults.
type CreateOptions struct {
	Title  string
	Width  float64
	Height float64
	Reader reader.Config
}

// Result is what one call into a session produced.
type Result struct {
	Snapshot
	Outcomes []string        `json:"outcomes,omitempty"`
	Reports  []bridge.Report `json:"reports"`
}

// Manager owns the open sessions and the delivery worker pool.
type Manager struct {
	store  *Store
	queue  chan hostclient.Delivery
	client Deliverer
	stats  *DispatchStats
	log    *slog.Logger
	cfg    config.Config

	retryBase time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates the manager. A nil client disables delivery.
func NewManager(cfg config.Config, client Deliverer, log *slog.Logger) *Manager {
	return &Manager{
		store:     NewStore(cfg.SessionTTL),
		queue:     make(chan hostclient.Delivery, cfg.MaxQueueSize),
		client:    client,
		stats:     NewDispatchStats(time.Hour),
		log:       log,
		cfg:       cfg,
		retryBase: time.Second,
		now:       time.Now,
	}
}

// Start launches the delivery workers and the idle-session sweeper.
func (m *Manager) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.client != nil {
		for range m.cfg.WorkerCount {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				for {
					select {
					case <-workerCtx.Done():
						return
					case d, ok := <-m.queue:
						if !ok {
							return
						}
						m.deliver(workerCtx, d)
					}
				}
			}()
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(min(5*time.Minute, m.cfg.SessionTTL/2+time.Second))
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if ids := m.store.Cleanup(m.now()); len(ids) > 0 {
					m.log.Info("expired idle sessions", "count", len(ids))
				}
			}
		}
	}()
}

// Stop shuts down the workers. Batches still queued are dropped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.queue)
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) deliver(ctx context.Context, d hostclient.Delivery) {
	log := m.log.With("session_id", d.SessionID, "seq", d.Seq)
	var err error
	for attempt := range MaxRetries {
		err = m.client.Deliver(ctx, d)
		if err == nil || !IsRetryable(err) {
			break
		}
		log.Warn("retryable delivery error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt, m.retryBase)):
		case <-ctx.Done():
			return
		}
	}
	if err != nil {
		log.Error("delivery failed", "reports", len(d.Reports), "error", err)
	}
}

func (m *Manager) enqueue(d hostclient.Delivery) {
	if m.client == nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		return
	}
	select {
	case m.queue <- d:
	default:
		m.log.Warn("delivery queue full, batch dropped",
			"session_id", d.SessionID, "seq", d.Seq, "queue_size", m.cfg.MaxQueueSize)
	}
}

// Create parses a chapter, lays it out and starts a session over it.
func (m *Manager) Create(filename string, data []byte, opts CreateOptions) (Result, error) {
	p, err := parser.ForFile(filename, m.cfg.PDFFallbackPdftotext)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: parse: %v", ErrInvalidInput, err)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = m.cfg.ViewportWidth
	}
	if height <= 0 {
		height = m.cfg.ViewportHeight
	}
	flow := layout.NewFlow(doc, layout.Options{
		Mode:       opts.Reader.Mode,
		Columns:    max(opts.Reader.Columns, 1),
		Width:      width,
		Height:     height,
		CharWidth:  m.cfg.CharWidth,
		LineHeight: m.cfg.LineHeight,
		Margin:     m.cfg.Margin,
	})

	title := opts.Title
	if title == "" {
		title = doc.Title()
	}
	now := m.now()
	e := &Entry{
		ID:          newID(now),
		Filename:    filename,
		Title:       title,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		rec:         &bridge.Recorder{},
	}
	e.reader = reader.New(doc, flow, opts.Reader, m.cfg.Tuning, e.rec, m.log.With("session_id", e.ID))
	m.store.Put(e)
	m.log.Info("session created", "session_id", e.ID, "filename", filename, "mode", opts.Reader.Mode.String())

	return m.Do(e.ID, func(s *reader.Session) error {
		s.Start()
		return nil
	})
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (Snapshot, error) {
	e := m.store.Get(id)
	if e == nil {
		return Snapshot{}, ErrNotFound
	}
	return e.Snapshot(), nil
}

// Delete closes a session.
func (m *Manager) Delete(id string) error {
	if !m.store.Delete(id) {
		return ErrNotFound
	}
	m.log.Info("session closed", "session_id", id)
	return nil
}

// Dispatch feeds a batch of events to a session in order.
func (m *Manager) Dispatch(id string, events []event.Event) (Result, error) {
	var outcomes []string
	res, err := m.Do(id, func(s *reader.Session) error {
		for _, e := range events {
			outcomes = append(outcomes, s.Dispatch(e).String())
		}
		return nil
	})
	res.Outcomes = outcomes
	return res, err
}

// Do runs fn inside a session and collects the reports it produced. The
// reports are returned and queued for delivery even when fn fails.
func (m *Manager) Do(id string, fn func(*reader.Session) error) (Result, error) {
	e := m.store.Get(id)
	if e == nil {
		return Result{}, ErrNotFound
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Result{}, ErrNotFound
	}
	start := time.Now()
	err := fn(e.reader)
	m.stats.Record(time.Since(start))
	e.UpdatedAt = m.now()
	reports := e.rec.Drain()
	if reports == nil {
		reports = []bridge.Report{}
	}
	e.seq++
	seq := e.seq
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if len(reports) > 0 {
		m.enqueue(hostclient.Delivery{SessionID: id, Seq: seq, Reports: reports, SentAt: m.now()})
	}
	return Result{Snapshot: snap, Reports: reports}, err
}

// Content renders the session's chapter body, markers included.
func (m *Manager) Content(id string) (string, error) {
	e := m.store.Get(id)
	if e == nil {
		return "", ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reader.Document().BodyHTML()
}

// Stats returns the dispatch latency aggregate.
func (m *Manager) Stats() StatsSnapshot { return m.stats.Snapshot() }

// Len returns the number of open sessions.
func (m *Manager) Len() int { return m.store.Len() }

// QueueDepth returns the number of batches waiting for delivery.
func (m *Manager) QueueDepth() int { return len(m.queue) }
