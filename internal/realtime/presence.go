package realtime

import (
	"sort"
	"sync"
	"time"
)

// Presence tracks when each user last sent a heartbeat. A user is online
// while their last heartbeat is younger than the threshold.
type Presence struct {
	mu        sync.RWMutex
	lastSeen  map[uint64]time.Time
	threshold time.Duration
	now       func() time.Time
}

// NewPresence creates a tracker with the given online threshold.
func NewPresence(threshold time.Duration) *Presence {
	return &Presence{
		lastSeen:  make(map[uint64]time.Time),
		threshold: threshold,
		now:       time.Now,
	}
}

// Heartbeat records that userID is alive now.
func (p *Presence) Heartbeat(userID uint64) time.Time {
	now := p.now()
	p.mu.Lock()
	p.lastSeen[userID] = now
	p.mu.Unlock()
	return now
}

// IsOnline reports whether userID sent a heartbeat within the threshold.
func (p *Presence) IsOnline(userID uint64) bool {
	p.mu.RLock()
	seen, ok := p.lastSeen[userID]
	p.mu.RUnlock()
	return ok && p.now().Sub(seen) < p.threshold
}

// LastSeen returns the last heartbeat of userID.
func (p *Presence) LastSeen(userID uint64) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen, ok := p.lastSeen[userID]
	return seen, ok
}

// OnlineUsers lists online user IDs in ascending order and forgets users
// that went offline.
func (p *Presence) OnlineUsers() []uint64 {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	online := make([]uint64, 0, len(p.lastSeen))
	for userID, seen := range p.lastSeen {
		if now.Sub(seen) < p.threshold {
			online = append(online, userID)
		} else {
			delete(p.lastSeen, userID)
		}
	}
	sort.Slice(online, func(i, j int) bool { return online[i] < online[j] })
	return online
}
