package term

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/GriffinCanCode/BlockShell/core/internal/assist"
	"github.com/GriffinCanCode/BlockShell/core/internal/config"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"go.uber.org/zap"
)

// Snapshot is the assembled ambient state handed to AI-assisted commands.
type Snapshot struct {
	CWD          string    `json:"cwd"`
	Shell        string    `json:"shell"`
	RecentErrors []string  `json:"recent_errors"`
	GitStatus    string    `json:"git_status,omitempty"`
	Sessions     int       `json:"sessions"`
	Tabs         int       `json:"tabs"`
	CapturedAt   time.Time `json:"captured_at"`
}

// registryView is the read-only slice of registry state the cache consumes.
// The cache never mutates session state.
type registryView interface {
	ActiveSession() (SessionInfo, bool)
	ActiveBlocks() []Block
	SessionCount() int
}

// Cache serves context snapshots with a short TTL so bursts of AI-assisted
// commands share one round of expensive lookups. A snapshot older than the
// TTL is stale and is never served.
type Cache struct {
	view   registryView
	assist assist.Collaborator // Optional; nil degrades gracefully
	cfg    config.ContextConfig
	log    *logging.Logger

	mu   sync.Mutex
	snap *Snapshot
}

// NewCache creates a context cache. The collaborator may be nil.
func NewCache(view registryView, collaborator assist.Collaborator, cfg config.ContextConfig, log *logging.Logger) *Cache {
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.RecentErrors <= 0 {
		cfg.RecentErrors = 3
	}
	if cfg.ErrorPreview <= 0 {
		cfg.ErrorPreview = 200
	}
	return &Cache{
		view:   view,
		assist: collaborator,
		cfg:    cfg,
		log:    log,
	}
}

// Get returns the cached snapshot while fresh, otherwise assembles a new
// one. Best-effort parts (context pack, git status) swallow their failures;
// only total failure yields the minimal fallback snapshot.
func (c *Cache) Get(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && time.Since(c.snap.CapturedAt) < c.cfg.TTL {
		return *c.snap
	}

	snap := c.assemble(ctx)
	c.snap = &snap
	return snap
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
}

func (c *Cache) assemble(ctx context.Context) Snapshot {
	snap := Snapshot{
		RecentErrors: []string{},
		CapturedAt:   time.Now(),
	}
	assembled := false

	if c.assist != nil {
		if pack, err := c.assist.ContextPack(ctx); err == nil {
			snap.CWD = pack["cwd"]
			snap.Shell = pack["shell"]
			assembled = true
		} else {
			c.log.Debug("context pack failed", zap.Error(err))
		}
	}

	if info, ok := c.view.ActiveSession(); ok {
		if snap.CWD == "" {
			snap.CWD = info.WorkingDir
		}
		if snap.Shell == "" {
			snap.Shell = info.Shell
		}
		assembled = true
	}

	for _, b := range recentErrorBlocks(c.view.ActiveBlocks(), c.cfg.RecentErrors) {
		snap.RecentErrors = append(snap.RecentErrors, truncate(b.Content, c.cfg.ErrorPreview))
	}

	count := c.view.SessionCount()
	snap.Sessions = count
	snap.Tabs = count

	if c.assist != nil {
		if res, err := c.assist.RunScript(ctx, "git", []string{"status", "--short"}); err == nil && res.Code == 0 {
			snap.GitStatus = res.Stdout
			assembled = true
		}
	}

	if !assembled {
		// Total failure: minimal snapshot, never an error
		return Snapshot{
			CWD:          "~",
			Shell:        "unknown",
			RecentErrors: []string{},
			Sessions:     count,
			Tabs:         count,
			CapturedAt:   snap.CapturedAt,
		}
	}

	if snap.CWD == "" {
		snap.CWD = "~"
	}
	if snap.Shell == "" {
		snap.Shell = "unknown"
	}

	return snap
}

// recentErrorBlocks collects the most recent error-or-error-status blocks,
// newest last, capped at limit.
func recentErrorBlocks(blocks []Block, limit int) []Block {
	var picked []Block
	for i := len(blocks) - 1; i >= 0 && len(picked) < limit; i-- {
		b := blocks[i]
		if b.Type == BlockError || b.Status == StatusError {
			picked = append(picked, b)
		}
	}
	// Reverse into chronological order
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

// truncate bounds text to limit bytes without splitting a UTF-8 sequence.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
