package content

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/milk9111/levelkit/data"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedSource() Source {
	return Source{
		FS:           data.Embedded,
		LevelsDir:    data.LevelsDir,
		ManifestPath: data.ManifestPath,
		RulesDir:     data.RulesDir,
	}
}

func defaultValidator() Validator {
	return Validator{RequiredCategories: DefaultCategories}
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	assert.Nil(t, s.Current())

	_, err := s.Resolve("ground/default")
	require.ErrorIs(t, err, material.ErrUnknownProfile)

	_, err = s.Preview(material.Profile{ID: "ground/x", AlbedoPath: "x.png", UVScale: material.DefaultUVScale})
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStoreReloadEmbedded(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	snap, err := s.Reload(embeddedSource())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snap.Generation)
	assert.Same(t, snap, s.Current())
	assert.Equal(t, []uint32{1, 2, 3}, snap.Numbers())

	res, err := s.Resolve("ground/cobble_worn")
	require.NoError(t, err)
	assert.Equal(t, material.Ref("ground/cobble_01"), res.Source)
	assert.True(t, res.Fallback())

	mats, err := snap.Materials(3)
	require.NoError(t, err)
	assert.Equal(t, material.Ref("ground/default"), mats[levels.SurfaceGround].Source)
	assert.Equal(t, material.Ref("background/default"), mats[levels.SurfaceBackground].Source)
	assert.Equal(t, material.Ref("sidewall/default"), mats[levels.SurfaceSidewall].Source)

	_, err = snap.Materials(99)
	require.Error(t, err)
}

func TestStoreRejectKeepsPrevious(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	first, err := s.Reload(embeddedSource())
	require.NoError(t, err)

	defs := make([]*levels.Definition, len(first.Levels))
	for i, def := range first.Levels {
		defs[i] = def.Clone()
	}
	defs[0].Presentation.GroundProfile = "ground/missing"

	_, err = s.Publish(first.Manifest, defs)
	require.ErrorIs(t, err, material.ErrUnknownProfile)
	assert.Same(t, first, s.Current())

	dup := defs[1].Clone()
	dup.Number = 5
	dup.Presentation.LevelNumber = 5
	dup2 := dup.Clone()
	_, err = s.Publish(first.Manifest, []*levels.Definition{dup, dup2})
	require.ErrorIs(t, err, ErrDuplicateLevelNumber)
	assert.Same(t, first, s.Current())
	assert.Equal(t, "ground/cobble_01", first.Levels[0].Presentation.GroundProfile)
}

func TestStorePublishCopiesLevels(t *testing.T) {
	s := NewStore(Validator{Dims: small}, nil)
	def := testLevel(1, "ground/default")
	snap, err := s.Publish(testManifest(t), []*levels.Definition{def})
	require.NoError(t, err)

	def.Matrix[0][0] = levels.Indestructible
	got, ok := snap.Level(1)
	require.True(t, ok)
	assert.Equal(t, levels.SimpleBrick, got.Matrix[0][0])
}

func TestStorePublishCopiesManifest(t *testing.T) {
	s := NewStore(Validator{Dims: small}, nil)
	m := testManifest(t)
	before := m.Len()
	_, err := s.Publish(m, []*levels.Definition{testLevel(1, "ground/default")})
	require.NoError(t, err)

	require.NoError(t, m.Insert(material.Profile{
		ID:            "ground/loop",
		UVScale:       material.DefaultUVScale,
		FallbackChain: []material.Ref{"ground/loop"},
	}))

	snap := s.Current()
	assert.Equal(t, before, snap.Manifest.Len())
	_, ok := snap.Manifest.Lookup("ground/loop")
	assert.False(t, ok)
	_, err = s.Resolve("ground/loop")
	require.ErrorIs(t, err, material.ErrUnknownProfile)
	_, err = snap.Resolve("ground/default")
	require.NoError(t, err)
}

func TestStorePreviewDoesNotMutate(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	before, err := s.Reload(embeddedSource())
	require.NoError(t, err)
	prev, ok := before.Manifest.Lookup("ground/cobble_01")
	require.True(t, ok)

	injected := prev
	injected.AlbedoPath = "textures/ground/preview.png"
	injected.Roughness = 0.2

	after, err := s.Preview(injected)
	require.NoError(t, err)
	assert.Equal(t, before.Generation+1, after.Generation)
	assert.Same(t, after, s.Current())

	res, err := s.Resolve("ground/cobble_worn")
	require.NoError(t, err)
	assert.Equal(t, "textures/ground/preview.png", res.AlbedoPath)

	old, err := before.Resolve("ground/cobble_worn")
	require.NoError(t, err)
	assert.Equal(t, prev.AlbedoPath, old.AlbedoPath)
	assert.Equal(t, 0.9, old.Roughness)
}

func TestStorePreviewRejected(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	before, err := s.Reload(embeddedSource())
	require.NoError(t, err)

	// background/night already falls back to background/default, so this
	// closes a loop.
	_, err = s.Preview(material.Profile{ID: "background/default", UVScale: material.DefaultUVScale, FallbackChain: []material.Ref{"background/night"}})
	require.ErrorIs(t, err, material.ErrCyclicFallbackChain)
	assert.Same(t, before, s.Current())

	res, err := s.Resolve("background/default")
	require.NoError(t, err)
	assert.False(t, res.Fallback())
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore(defaultValidator(), nil)
	_, err := s.Reload(embeddedSource())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := s.Current()
				res, err := snap.Resolve("ground/cobble_worn")
				if assert.NoError(t, err) {
					assert.NotEmpty(t, res.AlbedoPath)
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		_, err := s.Reload(embeddedSource())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	assert.Equal(t, uint64(21), s.Current().Generation)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStoreWatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, data.Embedded))

	src := embeddedSource()
	src.FS = os.DirFS(dir)

	var logs syncBuffer
	s := NewStore(defaultValidator(), slog.New(slog.NewTextHandler(&logs, nil)))
	_, err := s.Reload(src)
	require.NoError(t, err)

	w, err := NewWatcher(dir, filepath.Join(dir, data.LevelsDir))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, src, w) }()

	path := filepath.Join(dir, data.LevelsDir, levels.FileName(1))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	edited := strings.Replace(string(raw), "notes: first wall", "notes: edited", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))
	assert.Eventually(t, func() bool {
		snap := s.Current()
		def, _ := snap.Level(1)
		return snap.Generation >= 2 && def.Presentation.Notes == "edited"
	}, 5*time.Second, 20*time.Millisecond)
	gen := s.Current().Generation

	broken := strings.Replace(edited, "level_number: 1", "level_number: 4", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "content rejected")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, gen, s.Current().Generation)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
