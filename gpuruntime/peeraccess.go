package gpuruntime

import "sync"

// peerKey identifies a directed (owner, peer) pair. Access from a to b is
// examined independently of access from b to a, matching the runtime's own
// CanAccessPeer/EnablePeerAccess directionality.
type peerKey struct {
	owner, peer int
}

// PeerAccessCache is the process-wide set of (owner, peer) pairs already
// examined for direct peer access (spec.md §4.2). It caches both positive
// and negative outcomes in the same set and does not distinguish them on
// query, preserving the teacher-domain's "at most one CanAccessPeer call per
// pair over the process lifetime" observable (spec.md §9).
//
// Safe for concurrent use; unlike pool.DevicePool this is shared process-wide
// state, so it earns its own mutex (spec.md §5).
type PeerAccessCache struct {
	mu      sync.Mutex
	checked map[peerKey]struct{}
}

// NewPeerAccessCache returns an empty cache.
func NewPeerAccessCache() *PeerAccessCache {
	return &PeerAccessCache{checked: make(map[peerKey]struct{})}
}

// DefaultPeerAccessCache is the cache used by rawmem.Pointer's device-to-device
// copy helpers when no explicit cache is supplied.
var DefaultPeerAccessCache = NewPeerAccessCache()

// Ensure makes sure peer access from owner to peer has been examined exactly
// once, enabling it if available. It switches the active device to owner for
// the duration of the EnablePeerAccess call and restores whatever was active
// beforehand on every exit path, including failure (spec.md §4.2).
//
// A CanAccessPeer result of false is cached and never retried; the copy that
// triggered this call proceeds regardless (spec.md's PeerAccessUnavailable
// error class is silent — the runtime itself will fail the copy if the path
// is truly unusable).
func (c *PeerAccessCache) Ensure(rt Runtime, owner, peer int) error {
	if owner == peer {
		return nil
	}

	key := peerKey{owner: owner, peer: peer}

	c.mu.Lock()
	_, seen := c.checked[key]
	c.mu.Unlock()
	if seen {
		return nil
	}

	canAccess, err := rt.CanAccessPeer(owner, peer)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.checked[key] = struct{}{}
	c.mu.Unlock()

	if !canAccess {
		return nil
	}

	prev := rt.GetDevice()
	if err := rt.SetDevice(owner); err != nil {
		return err
	}
	defer func() { _ = rt.SetDevice(prev) }()

	return rt.EnablePeerAccess(peer)
}
