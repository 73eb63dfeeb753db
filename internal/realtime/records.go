package realtime

import (
	"fmt"
	"sync"
)

// Records tracks which (orderId, status) pairs have already produced a
// user-visible notification in this session. The socket path and the push
// path race with no ordering guarantee between them, so both consult the
// same record set before surfacing anything.
//
// Records live for the process lifetime and are not persisted.
type Records struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRecords creates an empty dedup record set.
func NewRecords() *Records {
	return &Records{seen: make(map[string]struct{})}
}

func dedupKey(orderID int64, status string) string {
	return fmt.Sprintf("%d|%s", orderID, status)
}

// FirstDelivery records the pair and reports whether it was the first time
// it was seen. Callers surface a notification only on true; on false the
// event has already been shown and only silent cache refresh applies.
func (r *Records) FirstDelivery(orderID int64, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dedupKey(orderID, status)
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	return true
}

// Seen reports whether the pair has already been surfaced, without
// recording it.
func (r *Records) Seen(orderID int64, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[dedupKey(orderID, status)]
	return ok
}

// Len returns the number of recorded pairs.
func (r *Records) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
