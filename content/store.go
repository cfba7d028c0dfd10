package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milk9111/levelkit/grid"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
)

// Snapshot is one accepted content set. Nothing reachable from a Snapshot is
// modified after publish; callers must treat levels as read-only.
type Snapshot struct {
	Generation uint64
	Manifest   *material.Manifest
	// Levels are sorted by number.
	Levels   []*levels.Definition
	Dims     grid.Dimensions
	LoadedAt time.Time

	resolver *material.Resolver
	byNumber map[uint32]*levels.Definition
}

func newSnapshot(gen uint64, m *material.Manifest, defs []*levels.Definition, dims grid.Dimensions, at time.Time) *Snapshot {
	s := &Snapshot{
		Generation: gen,
		Manifest:   m,
		Levels:     make([]*levels.Definition, len(defs)),
		Dims:       dims,
		LoadedAt:   at,
		resolver:   material.NewResolver(m),
		byNumber:   make(map[uint32]*levels.Definition, len(defs)),
	}
	for i, def := range defs {
		s.Levels[i] = def.Clone()
		s.byNumber[def.Number] = s.Levels[i]
	}
	sort.Slice(s.Levels, func(i, j int) bool { return s.Levels[i].Number < s.Levels[j].Number })
	return s
}

func (s *Snapshot) Level(number uint32) (*levels.Definition, bool) {
	def, ok := s.byNumber[number]
	return def, ok
}

func (s *Snapshot) Numbers() []uint32 {
	out := make([]uint32, len(s.Levels))
	for i, def := range s.Levels {
		out[i] = def.Number
	}
	return out
}

func (s *Snapshot) Resolve(ref material.Ref) (material.Resolved, error) {
	return s.resolver.Resolve(ref)
}

// Materials resolves the three surfaces of a level. A surface the level does
// not declare uses "<surface>/default" when the manifest has one, and is left
// out otherwise.
func (s *Snapshot) Materials(number uint32) (map[levels.Surface]material.Resolved, error) {
	def, ok := s.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("content: materials: level %d not found", number)
	}

	declared := map[levels.Surface]string{}
	for _, sr := range def.Presentation.Profiles() {
		declared[sr.Surface] = sr.Ref
	}

	out := make(map[levels.Surface]material.Resolved, 3)
	for _, surface := range []levels.Surface{levels.SurfaceGround, levels.SurfaceBackground, levels.SurfaceSidewall} {
		ref, ok := declared[surface]
		if !ok {
			ref = string(surface) + "/default"
			if _, found := s.Manifest.Lookup(material.Ref(ref)); !found {
				continue
			}
		}
		res, err := s.resolver.Resolve(material.Ref(ref))
		if err != nil {
			return nil, &LevelError{Level: number, Surface: surface, Err: err}
		}
		out[surface] = res
	}
	return out, nil
}

// Store holds the current snapshot. Readers never block; publishers are
// serialized and swap the pointer only after a batch validates.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	validator Validator
	gen       uint64
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore returns an empty store. A nil logger discards output.
func NewStore(v Validator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{validator: v, logger: logger, now: time.Now}
}

// Current returns the published snapshot, or nil before the first publish.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Resolve resolves ref against the current snapshot.
func (s *Store) Resolve(ref material.Ref) (material.Resolved, error) {
	snap := s.Current()
	if snap == nil {
		return material.Resolved{}, &material.ResolveError{Kind: material.ErrUnknownProfile, Ref: ref}
	}
	return snap.Resolve(ref)
}

// Publish validates the batch and makes it current. On failure the previous
// snapshot stays published and the validation error is returned.
func (s *Store) Publish(m *material.Manifest, defs []*levels.Definition) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishLocked(&s.validator, m, defs)
}

func (s *Store) publishLocked(v *Validator, m *material.Manifest, defs []*levels.Definition) (*Snapshot, error) {
	// The snapshot owns its manifest; later inserts by the caller stay out.
	m = m.Clone()
	report, err := v.Validate(m, defs)
	if err != nil {
		s.logger.Warn("content rejected",
			"violations", len(report.Violations),
			"generation", s.gen,
			"err", err)
		return nil, fmt.Errorf("content: publish: %w", err)
	}

	s.gen++
	snap := newSnapshot(s.gen, m, defs, v.dims(), s.now())
	s.current.Store(snap)
	s.logger.Info("content published",
		"generation", snap.Generation,
		"levels", report.Levels,
		"profiles", report.Profiles)
	return snap, nil
}

// Preview republishes the current content with p added to the manifest, or
// replacing the profile with the same id. The manifest of the previous
// snapshot is not changed.
func (s *Store) Preview(p material.Profile) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur == nil {
		return nil, fmt.Errorf("content: preview: %w", ErrNoSnapshot)
	}
	m, err := cur.Manifest.With(p)
	if err != nil {
		return nil, fmt.Errorf("content: preview: %w", err)
	}
	s.logger.Debug("previewing profile", "id", p.ID)
	return s.publishLocked(&s.validator, m, cur.Levels)
}

// Reload loads src and publishes it. When src names a rules directory the
// loaded rules replace the store's rules, but only if the batch is accepted.
func (s *Store) Reload(src Source) (*Snapshot, error) {
	batch, err := Load(src)
	if err != nil {
		s.logger.Warn("content load failed", "err", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.validator
	if src.RulesDir != "" {
		v.Rules = batch.Rules
	}
	snap, err := s.publishLocked(&v, batch.Manifest, batch.Levels)
	if err != nil {
		return nil, err
	}
	s.validator = v
	return snap, nil
}

// Watch reloads src whenever w reports a change, until ctx ends or the
// watcher closes. Rejected reloads are logged and leave the current
// snapshot in place.
func (s *Store) Watch(ctx context.Context, src Source, w *Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.logger.Info("content changed", "file", name)
			// Reload logs its own failures.
			_, _ = s.Reload(src)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watch error", "err", err)
		}
	}
}
