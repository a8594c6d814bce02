package core

import "sync"

// ClaimRegistry records which observation tasks have been taken by the
// scan. A task is claimed once, whether or not the observation was
// committed, and is then invisible to every other satellite.
type ClaimRegistry struct {
	mu      sync.Mutex
	claimed map[string]string // task ID -> satellite ID
}

// NewClaimRegistry returns an empty registry.
func NewClaimRegistry() *ClaimRegistry {
	return &ClaimRegistry{claimed: make(map[string]string)}
}

// Claim marks taskID as taken by satelliteID if nobody holds it yet and
// reports whether this call won the claim.
func (r *ClaimRegistry) Claim(taskID, satelliteID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.claimed[taskID]; taken {
		return false
	}
	r.claimed[taskID] = satelliteID
	return true
}

// IsClaimed reports whether taskID has been claimed.
func (r *ClaimRegistry) IsClaimed(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.claimed[taskID]
	return taken
}

// Holder returns the satellite that claimed taskID.
func (r *ClaimRegistry) Holder(taskID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sat, taken := r.claimed[taskID]
	return sat, taken
}

// Len returns the number of claimed tasks.
func (r *ClaimRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}
