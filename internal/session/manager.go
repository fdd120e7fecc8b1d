package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/playback"
)

// MaxPlayers limits concurrent players to bound timer and memory usage
const MaxPlayers = 50

// PlayerMaxAge is how long an idle player is kept before cleanup
const PlayerMaxAge = 30 * time.Minute

// PlayerKeepAliveWindow is how long to keep players that are actively being used
const PlayerKeepAliveWindow = 5 * time.Minute

// Options configures a Manager.
type Options struct {
	// MaxPlayers overrides the package default when positive.
	MaxPlayers int
	// Clock drives auto-advance. Nil selects the system clock.
	Clock playback.Clock
	// Observers are subscribed to every player's controller.
	Observers []playback.Observer
	// OnClose is called after a player has been torn down.
	OnClose func(p *Player)
}

// Manager owns the active players.
type Manager struct {
	players map[string]*Player
	mu      sync.RWMutex
	opts    Options
}

// NewManager creates a player manager.
func NewManager(opts Options) *Manager {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = MaxPlayers
	}
	return &Manager{
		players: make(map[string]*Player),
		opts:    opts,
	}
}

// Create starts a paused player for plan at the initial step.
func (m *Manager) Create(planID, title string, plan *models.AnimationPlan) *Player {
	if plan == nil {
		plan = &models.AnimationPlan{}
	}
	m.evictIfNeeded()

	id := uuid.New().String()
	p := newPlayer(id, planID, title, plan, m.opts.Clock, m.opts.Observers)

	m.mu.Lock()
	m.players[id] = p
	m.mu.Unlock()

	fmt.Printf("[Player %s] Created for %q (%d steps, %d elements)\n",
		shortID(id), title, plan.TotalSteps(), models.CountElements(plan.Elements))
	return p
}

// Get returns a player by ID.
func (m *Manager) Get(id string) (*Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	return p, ok
}

// Touch updates the LastAccessed timestamp for a player.
// This should be called whenever a player is actively being used
// to prevent it from being cleaned up.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return false
	}
	p.lastAccessed = time.Now()
	return true
}

// Info returns the API view of a player.
func (m *Manager) Info(id string) (models.PlayerSession, bool) {
	m.mu.RLock()
	p, ok := m.players[id]
	var last time.Time
	if ok {
		last = p.lastAccessed
	}
	m.mu.RUnlock()

	if !ok {
		return models.PlayerSession{}, false
	}
	info := p.Info()
	info.LastAccessed = last
	return info, true
}

// List returns every active player, oldest first.
func (m *Manager) List() []models.PlayerSession {
	m.mu.RLock()
	players := make([]*Player, 0, len(m.players))
	last := make(map[string]time.Time, len(m.players))
	for id, p := range m.players {
		players = append(players, p)
		last[id] = p.lastAccessed
	}
	m.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool {
		return players[i].CreatedAt.Before(players[j].CreatedAt)
	})
	out := make([]models.PlayerSession, 0, len(players))
	for _, p := range players {
		info := p.Info()
		info.LastAccessed = last[p.ID]
		out = append(out, info)
	}
	return out
}

// Count returns the number of active players.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// Close tears down a player. It reports whether the player existed.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	p, ok := m.players[id]
	delete(m.players, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.teardown(p)
	fmt.Printf("[Player %s] Closed\n", shortID(id))
	return true
}

// Shutdown closes every player.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	players := m.players
	m.players = make(map[string]*Player)
	m.mu.Unlock()

	for _, p := range players {
		m.teardown(p)
	}
	if len(players) > 0 {
		fmt.Printf("[Manager] Closed %d players\n", len(players))
	}
}

// evictIfNeeded removes the least recently used players if at capacity
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	if len(m.players) < m.opts.MaxPlayers {
		m.mu.Unlock()
		return
	}

	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.players[ids[i]].lastAccessed.Before(m.players[ids[j]].lastAccessed)
	})

	// Delete enough to get below limit
	toFree := len(m.players) - m.opts.MaxPlayers + 1
	evicted := make([]*Player, 0, toFree)
	for _, id := range ids[:toFree] {
		evicted = append(evicted, m.players[id])
		delete(m.players, id)
	}
	m.mu.Unlock()

	for _, p := range evicted {
		m.teardown(p)
		fmt.Printf("[Manager] Evicted idle player %s to stay under %d players\n", shortID(p.ID), m.opts.MaxPlayers)
	}
}

// CleanupOldSessions removes players idle for longer than maxAge,
// but keeps players that have been accessed within PlayerKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-PlayerKeepAliveWindow)

	m.mu.Lock()
	var expired []*Player
	for id, p := range m.players {
		// Don't clean up players that are actively being used
		if p.lastAccessed.After(keepAliveCutoff) {
			continue
		}
		if p.lastAccessed.Before(cutoff) {
			expired = append(expired, p)
			delete(m.players, id)
		}
	}
	m.mu.Unlock()

	for _, p := range expired {
		m.teardown(p)
		fmt.Printf("[Manager] Cleaned up idle player %s (created %s ago)\n",
			shortID(p.ID), now.Sub(p.CreatedAt).Round(time.Second))
	}
	return len(expired)
}

func (m *Manager) teardown(p *Player) {
	p.close()
	if m.opts.OnClose != nil {
		m.opts.OnClose(p)
	}
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
