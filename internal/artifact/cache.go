package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"golang.org/x/sync/semaphore"
)

const persistTimeout = 10 * time.Second

// Config holds configuration for the cache.
type Config struct {
	// MaxConcurrentBuilds bounds the number of builds running at once across
	// all keys. Zero or negative means 1.
	MaxConcurrentBuilds int
}

// Cache is the single-flight artifact build cache. The zero value is not
// usable; create one with NewCache.
type Cache struct {
	store    store.ArtifactStore
	builders map[domain.ArtifactKind]Builder
	sem      *semaphore.Weighted
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	entries map[domain.ArtifactKey]*entry
	closed  bool
	// removedDocs holds documents passed to RemoveDocument. No new record
	// is created for them afterwards.
	removedDocs map[uuid.UUID]struct{}

	listenersMu sync.RWMutex
	listeners   []TransitionListener
}

// entry is the in-process state of one key. record mirrors the stored
// record and is authoritative once loaded; flight is the most recent build
// or resolved result and is kept after completion so handles can follow it.
type entry struct {
	mu     sync.Mutex
	loaded bool
	record *domain.ArtifactRecord
	flight *flight
}

// flight is one build attempt, or a pre-resolved result. done is closed
// exactly once, under the owning entry's lock; payload, err and superseded
// are written before the close.
type flight struct {
	generation int64
	done       chan struct{}
	payload    domain.ArtifactPayload
	err        error
	superseded bool
}

func newFlight(generation int64) *flight {
	return &flight{generation: generation, done: make(chan struct{})}
}

func resolvedFlight(generation int64, payload domain.ArtifactPayload, err error) *flight {
	f := newFlight(generation)
	f.payload, f.err = payload, err
	close(f.done)
	return f
}

func (f *flight) finished() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// NewCache creates a Cache backed by st. builders maps each artifact kind
// to the builder that produces it.
func NewCache(
	st store.ArtifactStore,
	builders map[domain.ArtifactKind]Builder,
	cfg Config,
	logger *slog.Logger,
) *Cache {
	limit := cfg.MaxConcurrentBuilds
	if limit <= 0 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := make(map[domain.ArtifactKind]Builder, len(builders))
	for k, v := range builders {
		b[k] = v
	}

	return &Cache{
		store:    st,
		builders: b,
		sem:      semaphore.NewWeighted(int64(limit)),
		logger:   logger.With("component", "artifact_cache"),
		baseCtx:  ctx,
		cancel:   cancel,
		entries:  make(map[domain.ArtifactKey]*entry),

		removedDocs: make(map[uuid.UUID]struct{}),
	}
}

// OnTransition registers a listener for committed status transitions.
func (c *Cache) OnTransition(l TransitionListener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
}

func (c *Cache) notify(ctx context.Context, ts []Transition) {
	if len(ts) == 0 {
		return
	}
	c.listenersMu.RLock()
	ls := append([]TransitionListener(nil), c.listeners...)
	c.listenersMu.RUnlock()

	for _, t := range ts {
		c.logger.Debug("artifact transition",
			"key", t.Key.String(),
			"from", t.From,
			"to", t.To,
			"generation", t.Generation)
		for _, l := range ls {
			l(ctx, t)
		}
	}
}

func (c *Cache) entryFor(key domain.ArtifactKey) (*entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e, nil
}

// load fills e.record from the store on first use. Must hold e.mu.
func (c *Cache) load(ctx context.Context, e *entry, key domain.ArtifactKey) error {
	if e.loaded {
		return nil
	}
	rec, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrArtifactNotFound):
		rec = nil
	case err != nil:
		return fmt.Errorf("failed to load artifact record %s: %w", key, err)
	}
	e.record = rec
	e.loaded = true
	return nil
}

// Ensure returns a handle to the artifact for key, starting a build when
// needed:
//   - no record: a pending record is created and moved to processing
//   - ready and !force: the cached payload, without a build
//   - processing and !force: the in-flight build
//   - failed and !force: the recorded failure
//   - force: the generation is advanced and a new build starts
//   - removed: ErrArtifactRemoved, regardless of force
//
// A record left pending or processing by an earlier process has no live
// build and is rebuilt at the next generation.
func (c *Cache) Ensure(ctx context.Context, key domain.ArtifactKey, force bool) (*Handle, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	builder, ok := c.builders[key.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w %s", domain.ErrInvalidArgument, ErrNoBuilder, key.Kind)
	}

	e, err := c.entryFor(key)
	if err != nil {
		return nil, err
	}

	h, ts, err := c.ensureLocked(ctx, e, key, builder, force)
	c.notify(ctx, ts)
	return h, err
}

func (c *Cache) ensureLocked(
	ctx context.Context,
	e *entry,
	key domain.ArtifactKey,
	builder Builder,
	force bool,
) (*Handle, []Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.load(ctx, e, key); err != nil {
		return nil, nil, err
	}

	rec := e.record
	switch {
	case rec == nil && c.documentRemoved(key.DocumentID):
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrArtifactRemoved, key)

	case rec == nil:
		created := domain.NewArtifactRecord(key)
		if err := c.put(ctx, created); err != nil {
			return nil, nil, err
		}
		e.record = created
		ts := []Transition{{Key: key, To: domain.ArtifactStatusPending, Generation: created.Generation}}
		h, t, err := c.startLocked(ctx, e, key, builder, created.Generation)
		if err != nil {
			return nil, ts, err
		}
		return h, append(ts, t), nil

	case rec.Status == domain.ArtifactStatusRemoved:
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrArtifactRemoved, key)

	case force:
		h, t, err := c.startLocked(ctx, e, key, builder, rec.Generation+1)
		if err != nil {
			return nil, nil, err
		}
		return h, []Transition{t}, nil

	case rec.Status == domain.ArtifactStatusReady:
		if !c.currentResolved(e) {
			e.flight = resolvedFlight(rec.Generation, rec.Payload, nil)
		}
		return c.handle(key, e), nil, nil

	case rec.Status == domain.ArtifactStatusFailed:
		if !c.currentResolved(e) {
			e.flight = resolvedFlight(rec.Generation, nil, fmt.Errorf("%w: %s", ErrBuildFailed, rec.Error))
		}
		return c.handle(key, e), nil, nil

	default:
		if e.flight != nil && e.flight.generation == rec.Generation && !e.flight.finished() {
			return c.handle(key, e), nil, nil
		}
		c.logger.Info("rebuilding orphaned artifact record",
			"key", key.String(),
			"status", rec.Status,
			"generation", rec.Generation)
		h, t, err := c.startLocked(ctx, e, key, builder, rec.Generation+1)
		if err != nil {
			return nil, nil, err
		}
		return h, []Transition{t}, nil
	}
}

// currentResolved reports whether e.flight already holds the finished
// result for e.record's generation. Must hold e.mu.
func (c *Cache) currentResolved(e *entry) bool {
	return e.flight != nil && e.flight.generation == e.record.Generation && e.flight.finished()
}

func (c *Cache) handle(key domain.ArtifactKey, e *entry) *Handle {
	return &Handle{key: key, entry: e, flight: e.flight}
}

// startLocked moves the record to processing at generation and launches
// the build. Any unfinished flight is superseded. Must hold e.mu.
func (c *Cache) startLocked(
	ctx context.Context,
	e *entry,
	key domain.ArtifactKey,
	builder Builder,
	generation int64,
) (*Handle, Transition, error) {
	next := e.record.Clone()
	from := next.Status
	next.Generation = generation
	if err := next.Transition(domain.ArtifactStatusProcessing); err != nil {
		return nil, Transition{}, err
	}
	if err := c.put(ctx, next); err != nil {
		return nil, Transition{}, err
	}
	e.record = next

	f := newFlight(generation)
	c.supersede(e, f)

	c.wg.Add(1)
	go c.run(e, key, builder, f)

	t := Transition{Key: key, From: from, To: domain.ArtifactStatusProcessing, Generation: generation}
	return c.handle(key, e), t, nil
}

// supersede installs f as the entry's flight. An unfinished previous flight
// is closed as superseded so its waiters move on to f; its build keeps
// running and its result is dropped on arrival. Must hold e.mu.
func (c *Cache) supersede(e *entry, f *flight) {
	prev := e.flight
	e.flight = f
	if prev != nil && !prev.finished() {
		prev.superseded = true
		close(prev.done)
	}
}

func (c *Cache) run(e *entry, key domain.ArtifactKey, builder Builder, f *flight) {
	defer c.wg.Done()

	log := c.logger.With("key", key.String(), "generation", f.generation)

	if err := c.sem.Acquire(c.baseCtx, 1); err != nil {
		c.complete(e, key, f, nil, err)
		return
	}
	start := time.Now()
	payload, err := c.build(c.baseCtx, builder, key)
	c.sem.Release(1)

	if err == nil {
		err = checkPayload(key, payload)
	}
	if err != nil {
		log.Warn("artifact build failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	} else {
		log.Info("artifact build finished", "duration_ms", time.Since(start).Milliseconds())
	}
	c.complete(e, key, f, payload, err)
}

func (c *Cache) build(
	ctx context.Context,
	builder Builder,
	key domain.ArtifactKey,
) (payload domain.ArtifactPayload, err error) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("artifact builder panicked",
				"key", key.String(),
				"panic", p,
				"stack", string(debug.Stack()))
			payload, err = nil, fmt.Errorf("builder panic: %v", p)
		}
	}()
	return builder.Build(ctx, key)
}

func checkPayload(key domain.ArtifactKey, payload domain.ArtifactPayload) error {
	if payload == nil {
		return fmt.Errorf("%w: builder returned no payload", ErrInvalidPayload)
	}
	if payload.Kind() != key.Kind {
		return fmt.Errorf("%w: %s payload for %s key", ErrInvalidPayload, payload.Kind(), key.Kind)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// complete commits a build result if f is still the current attempt.
func (c *Cache) complete(
	e *entry,
	key domain.ArtifactKey,
	f *flight,
	payload domain.ArtifactPayload,
	buildErr error,
) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	t, ok := c.completeLocked(ctx, e, key, f, payload, buildErr)
	if ok {
		c.notify(ctx, []Transition{t})
	}
}

func (c *Cache) completeLocked(
	ctx context.Context,
	e *entry,
	key domain.ArtifactKey,
	f *flight,
	payload domain.ArtifactPayload,
	buildErr error,
) (Transition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f.superseded || f.finished() || e.record == nil ||
		e.record.Generation != f.generation || e.record.Status != domain.ArtifactStatusProcessing {
		c.logger.Debug("discarding stale artifact build result",
			"key", key.String(),
			"flight_generation", f.generation)
		return Transition{}, false
	}

	// Shutdown: leave the record processing so the next process rebuilds it.
	if buildErr != nil && c.baseCtx.Err() != nil && errors.Is(buildErr, context.Canceled) {
		f.err = fmt.Errorf("%w: %w", ErrClosed, buildErr)
		close(f.done)
		return Transition{}, false
	}

	next := e.record.Clone()
	t := Transition{Key: key, From: next.Status, Generation: f.generation}
	if buildErr != nil {
		_ = next.Transition(domain.ArtifactStatusFailed)
		next.Error = buildErr.Error()
		f.err = fmt.Errorf("%w: %w", ErrBuildFailed, buildErr)
		t.To, t.Err = domain.ArtifactStatusFailed, buildErr
	} else {
		_ = next.Transition(domain.ArtifactStatusReady)
		next.Payload = payload
		f.payload = payload
		t.To, t.Payload = domain.ArtifactStatusReady, payload
	}

	if err := c.put(ctx, next); err != nil {
		c.logger.Error("failed to persist artifact result; keeping in-process state",
			"key", key.String(),
			"status", next.Status,
			"error", err)
	}
	e.record = next
	close(f.done)
	return t, true
}

func (c *Cache) put(ctx context.Context, rec *domain.ArtifactRecord) error {
	if err := c.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist artifact record %s: %w", rec.Key, err)
	}
	return nil
}

// Get returns a snapshot of the record for key.
// Returns domain.ErrArtifactNotFound if there is none.
func (c *Cache) Get(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := c.load(ctx, e, key); err != nil {
			return nil, err
		}
		if e.record == nil {
			return nil, domain.ErrArtifactNotFound
		}
		return e.record.Clone(), nil
	}

	rec, err := c.store.Get(ctx, key)
	if errors.Is(err, store.ErrArtifactNotFound) {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact record %s: %w", key, err)
	}
	return rec, nil
}

// ListByDocument returns snapshots of every record of a document, with
// in-process state taking precedence over the store.
func (c *Cache) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error) {
	stored, err := c.store.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact records: %w", err)
	}

	byKey := make(map[domain.ArtifactKey]*domain.ArtifactRecord, len(stored))
	order := make([]domain.ArtifactKey, 0, len(stored))
	for _, rec := range stored {
		byKey[rec.Key] = rec
		order = append(order, rec.Key)
	}

	for _, key := range c.keysFor(documentID) {
		c.mu.Lock()
		e := c.entries[key]
		c.mu.Unlock()

		e.mu.Lock()
		if e.loaded && e.record != nil {
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = e.record.Clone()
		}
		e.mu.Unlock()
	}

	out := make([]*domain.ArtifactRecord, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

func (c *Cache) documentRemoved(documentID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.removedDocs[documentID]
	return ok
}

func (c *Cache) keysFor(documentID uuid.UUID) []domain.ArtifactKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []domain.ArtifactKey
	for key := range c.entries {
		if key.DocumentID == documentID {
			keys = append(keys, key)
		}
	}
	return keys
}

// RemoveDocument marks every record of a document removed. In-flight
// builds are superseded and their handles fail with ErrArtifactRemoved, and
// later Ensure calls for any key of the document fail the same way, including
// keys that never had a record. It returns the number of records removed by
// this call.
func (c *Cache) RemoveDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	// Marked before collecting keys: an Ensure that passed the check has
	// already registered its entry and is picked up below.
	c.mu.Lock()
	c.removedDocs[documentID] = struct{}{}
	c.mu.Unlock()

	stored, err := c.store.ListByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list artifact records: %w", err)
	}

	keys := c.keysFor(documentID)
	seen := make(map[domain.ArtifactKey]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, rec := range stored {
		if !seen[rec.Key] {
			keys = append(keys, rec.Key)
			seen[rec.Key] = true
		}
	}

	removed := 0
	var errs []error
	for _, key := range keys {
		e, err := c.entryFor(key)
		if err != nil {
			return removed, err
		}
		t, ok, err := c.removeLocked(ctx, e, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
			c.notify(ctx, []Transition{t})
		}
	}
	return removed, errors.Join(errs...)
}

func (c *Cache) removeLocked(ctx context.Context, e *entry, key domain.ArtifactKey) (Transition, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.load(ctx, e, key); err != nil {
		return Transition{}, false, err
	}
	if e.record == nil || e.record.Status == domain.ArtifactStatusRemoved {
		return Transition{}, false, nil
	}

	next := e.record.Clone()
	from := next.Status
	next.Generation++
	if err := next.Transition(domain.ArtifactStatusRemoved); err != nil {
		return Transition{}, false, err
	}
	if err := c.put(ctx, next); err != nil {
		return Transition{}, false, err
	}
	e.record = next
	c.supersede(e, resolvedFlight(next.Generation, nil, fmt.Errorf("%w: %s", domain.ErrArtifactRemoved, key)))

	return Transition{Key: key, From: from, To: domain.ArtifactStatusRemoved, Generation: next.Generation}, true, nil
}

// Close stops accepting new work, cancels running builds and waits for
// their goroutines to exit or ctx to expire. Records of cancelled builds
// stay processing in the store and are rebuilt by the next process.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
