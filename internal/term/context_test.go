package term

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BlockShell/core/internal/assist"
	"github.com/GriffinCanCode/BlockShell/core/internal/config"
)

// fakeView supplies registry state without spawning anything.
type fakeView struct {
	info   SessionInfo
	hasSes bool
	blocks []Block
	count  int
}

func (v *fakeView) ActiveSession() (SessionInfo, bool) { return v.info, v.hasSes }
func (v *fakeView) ActiveBlocks() []Block              { return v.blocks }
func (v *fakeView) SessionCount() int                  { return v.count }

// fakeCollaborator counts calls and returns canned responses.
type fakeCollaborator struct {
	packCalls   atomic.Int64
	packErr     error
	pack        map[string]string
	scriptOut   string
	scriptCode  int
	scriptErr   error
	askResponse string
	askErr      error
}

func (f *fakeCollaborator) Ask(ctx context.Context, prompt string) (string, error) {
	return f.askResponse, f.askErr
}

func (f *fakeCollaborator) LogAction(ctx context.Context, kind, summary string, metadata map[string]interface{}) error {
	return nil
}

func (f *fakeCollaborator) ContextPack(ctx context.Context) (map[string]string, error) {
	f.packCalls.Add(1)
	return f.pack, f.packErr
}

func (f *fakeCollaborator) RunScript(ctx context.Context, cmd string, args []string) (assist.ScriptResult, error) {
	return assist.ScriptResult{Stdout: f.scriptOut, Code: f.scriptCode}, f.scriptErr
}

func TestCacheServesFreshSnapshot(t *testing.T) {
	collab := &fakeCollaborator{pack: map[string]string{"cwd": "/home/dev", "shell": "/bin/zsh"}}
	view := &fakeView{count: 2}
	cache := NewCache(view, collab, config.ContextConfig{TTL: time.Minute}, nil)

	first := cache.Get(context.Background())
	second := cache.Get(context.Background())

	assert.Equal(t, "/home/dev", first.CWD)
	assert.Equal(t, "/bin/zsh", first.Shell)
	assert.Equal(t, 2, first.Sessions)
	assert.Equal(t, first.CapturedAt, second.CapturedAt, "within TTL the same snapshot is served")
	assert.EqualValues(t, 1, collab.packCalls.Load(), "fresh snapshot means no second assembly")
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	collab := &fakeCollaborator{pack: map[string]string{"cwd": "/home/dev"}}
	cache := NewCache(&fakeView{}, collab, config.ContextConfig{TTL: 10 * time.Millisecond}, nil)

	first := cache.Get(context.Background())
	time.Sleep(20 * time.Millisecond)
	second := cache.Get(context.Background())

	assert.True(t, second.CapturedAt.After(first.CapturedAt), "stale snapshots are never served")
	assert.EqualValues(t, 2, collab.packCalls.Load())
}

func TestCacheInvalidateForcesReassembly(t *testing.T) {
	collab := &fakeCollaborator{pack: map[string]string{"cwd": "/home/dev"}}
	cache := NewCache(&fakeView{}, collab, config.ContextConfig{TTL: time.Minute}, nil)

	cache.Get(context.Background())
	cache.Invalidate()
	cache.Get(context.Background())

	assert.EqualValues(t, 2, collab.packCalls.Load())
}

func TestCacheFallsBackToActiveSession(t *testing.T) {
	collab := &fakeCollaborator{packErr: errors.New("bridge down")}
	view := &fakeView{
		info:   SessionInfo{WorkingDir: "/srv/app", Shell: "/bin/bash"},
		hasSes: true,
		count:  1,
	}
	cache := NewCache(view, collab, config.ContextConfig{}, nil)

	snap := cache.Get(context.Background())
	assert.Equal(t, "/srv/app", snap.CWD, "pack failure falls back to session state")
	assert.Equal(t, "/bin/bash", snap.Shell)
}

func TestCacheTotalFailureYieldsMinimalSnapshot(t *testing.T) {
	collab := &fakeCollaborator{packErr: errors.New("down"), scriptErr: errors.New("down")}
	cache := NewCache(&fakeView{}, collab, config.ContextConfig{}, nil)

	snap := cache.Get(context.Background())
	assert.Equal(t, "~", snap.CWD)
	assert.Equal(t, "unknown", snap.Shell)
	assert.NotNil(t, snap.RecentErrors)
	assert.Empty(t, snap.RecentErrors)
}

func TestCacheWithoutCollaborator(t *testing.T) {
	view := &fakeView{
		info:   SessionInfo{WorkingDir: "/srv/app", Shell: "/bin/bash"},
		hasSes: true,
		count:  1,
	}
	cache := NewCache(view, nil, config.ContextConfig{}, nil)

	snap := cache.Get(context.Background())
	assert.Equal(t, "/srv/app", snap.CWD)
	assert.Empty(t, snap.GitStatus)
}

func TestCacheCollectsRecentErrors(t *testing.T) {
	blocks := []Block{
		{Type: BlockOutput, Content: "fine"},
		{Type: BlockError, Content: "first failure"},
		{Type: BlockError, Content: "second failure"},
		{Type: BlockOutput, Status: StatusError, Content: "third failure"},
		{Type: BlockError, Content: "fourth failure"},
	}
	view := &fakeView{info: SessionInfo{Shell: "/bin/bash"}, hasSes: true, blocks: blocks, count: 1}
	cache := NewCache(view, nil, config.ContextConfig{RecentErrors: 3}, nil)

	snap := cache.Get(context.Background())
	require.Len(t, snap.RecentErrors, 3, "capped at the configured limit")
	assert.Equal(t, []string{"second failure", "third failure", "fourth failure"},
		snap.RecentErrors, "chronological order, newest last")
}

func TestCacheTruncatesErrorPreview(t *testing.T) {
	long := strings.Repeat("x", 500)
	view := &fakeView{
		info:   SessionInfo{Shell: "/bin/bash"},
		hasSes: true,
		blocks: []Block{{Type: BlockError, Content: long}},
		count:  1,
	}
	cache := NewCache(view, nil, config.ContextConfig{ErrorPreview: 200}, nil)

	snap := cache.Get(context.Background())
	require.Len(t, snap.RecentErrors, 1)
	assert.Len(t, snap.RecentErrors[0], 200)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"ascii under limit", "short", 10, "short"},
		{"ascii at limit", "exact", 5, "exact"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"multibyte straddling cut", "aé", 2, "a"},
		{"multibyte clean cut", "éé", 2, "é"},
		{"wide rune straddling cut", "a日本", 5, "a日"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestCacheErrorPreviewIsValidUTF8(t *testing.T) {
	long := strings.Repeat("日", 100)
	view := &fakeView{
		info:   SessionInfo{Shell: "/bin/bash"},
		hasSes: true,
		blocks: []Block{{Type: BlockError, Content: long}},
		count:  1,
	}
	cache := NewCache(view, nil, config.ContextConfig{ErrorPreview: 200}, nil)

	snap := cache.Get(context.Background())
	require.Len(t, snap.RecentErrors, 1)
	assert.True(t, utf8.ValidString(snap.RecentErrors[0]))
	assert.LessOrEqual(t, len(snap.RecentErrors[0]), 200)
}

func TestCacheIncludesGitStatus(t *testing.T) {
	collab := &fakeCollaborator{
		pack:      map[string]string{"cwd": "/repo"},
		scriptOut: " M main.go\n",
	}
	cache := NewCache(&fakeView{}, collab, config.ContextConfig{}, nil)

	snap := cache.Get(context.Background())
	assert.Equal(t, " M main.go\n", snap.GitStatus)
}

func TestCacheIgnoresFailedGitStatus(t *testing.T) {
	collab := &fakeCollaborator{
		pack:       map[string]string{"cwd": "/repo"},
		scriptOut:  "fatal: not a git repository",
		scriptCode: 128,
	}
	cache := NewCache(&fakeView{}, collab, config.ContextConfig{}, nil)

	snap := cache.Get(context.Background())
	assert.Empty(t, snap.GitStatus, "non-zero git exit leaves the field empty")
}
