package pending

import (
	"errors"
	"sync"

	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
)

// Table errors.
var (
	// ErrConflictingWaiter indicates a waiter is already registered for the
	// same key.
	ErrConflictingWaiter = errors.New("conflicting waiter for key")
)

// ProtoKey identifies a protobuf reply by its envelope (type, id) pair.
type ProtoKey struct {
	Type uint32
	ID   uint32
}

// SeqTable maps sequence numbers to one-shot reply channels.
type SeqTable struct {
	mu      sync.Mutex
	waiters map[uint8]chan []byte
}

// NewSeqTable creates an empty table.
func NewSeqTable() *SeqTable {
	return &SeqTable{waiters: make(map[uint8]chan []byte)}
}

// Register installs a waiter for seq and returns its receive channel.
// A previous waiter on the same seq is replaced (the seq space wrapped).
func (t *SeqTable) Register(seq uint8) <-chan []byte {
	ch := make(chan []byte, 1)
	t.mu.Lock()
	t.waiters[seq] = ch
	t.mu.Unlock()
	return ch
}

// Remove drops the waiter for seq, if any.
func (t *SeqTable) Remove(seq uint8) {
	t.mu.Lock()
	delete(t.waiters, seq)
	t.mu.Unlock()
}

// Signal delivers body to the waiter for seq and removes it.
// Reports whether a waiter existed.
func (t *SeqTable) Signal(seq uint8, body []byte) bool {
	t.mu.Lock()
	ch, ok := t.waiters[seq]
	if ok {
		delete(t.waiters, seq)
	}
	t.mu.Unlock()
	if ok {
		ch <- body
	}
	return ok
}

// Len returns the number of registered waiters.
func (t *SeqTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

// AckSlot is the single outstanding wait-for-ACK entry.
//
// The command pool never issues a second wait-ACK while one is pending,
// so the slot holds at most one waiter at a time.
type AckSlot struct {
	mu     sync.Mutex
	waiter chan struct{}
}

// NewAckSlot creates an empty slot.
func NewAckSlot() *AckSlot {
	return &AckSlot{}
}

// Register installs the waiter and returns its channel.
// A waiter still in the slot is closed so its consumer unblocks; the wire
// protocol's strict ordering means the displaced ACK was implicitly
// covered by the next one.
func (s *AckSlot) Register() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	old := s.waiter
	s.waiter = ch
	s.mu.Unlock()
	if old != nil {
		close(old)
	}
	return ch
}

// Remove clears the slot.
func (s *AckSlot) Remove() {
	s.mu.Lock()
	s.waiter = nil
	s.mu.Unlock()
}

// Signal wakes the registered waiter, if any, and clears the slot.
func (s *AckSlot) Signal() bool {
	s.mu.Lock()
	ch := s.waiter
	s.waiter = nil
	s.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- struct{}{}
	return true
}

// ProtoTable maps (type, id) keys to one-shot protobuf reply channels.
type ProtoTable struct {
	mu      sync.Mutex
	waiters map[ProtoKey]chan *wearpb.WearPacket
}

// NewProtoTable creates an empty table.
func NewProtoTable() *ProtoTable {
	return &ProtoTable{waiters: make(map[ProtoKey]chan *wearpb.WearPacket)}
}

// Register installs a waiter for key.
// Returns ErrConflictingWaiter if one is already registered.
func (t *ProtoTable) Register(key ProtoKey) (<-chan *wearpb.WearPacket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.waiters[key]; exists {
		return nil, ErrConflictingWaiter
	}
	ch := make(chan *wearpb.WearPacket, 1)
	t.waiters[key] = ch
	return ch, nil
}

// Remove drops the waiter for key, if any.
func (t *ProtoTable) Remove(key ProtoKey) {
	t.mu.Lock()
	delete(t.waiters, key)
	t.mu.Unlock()
}

// Signal delivers pkt to the waiter for key and removes it.
// Reports whether a waiter existed.
func (t *ProtoTable) Signal(key ProtoKey, pkt *wearpb.WearPacket) bool {
	t.mu.Lock()
	ch, ok := t.waiters[key]
	if ok {
		delete(t.waiters, key)
	}
	t.mu.Unlock()
	if ok {
		ch <- pkt
	}
	return ok
}

// Subscribers fans unsolicited protobuf pushes out by envelope type.
type Subscribers struct {
	mu   sync.RWMutex
	subs map[uint32][]func(*wearpb.WearPacket)
}

// NewSubscribers creates an empty fan-out table.
func NewSubscribers() *Subscribers {
	return &Subscribers{subs: make(map[uint32][]func(*wearpb.WearPacket))}
}

// Add appends a callback for the envelope type.
// Callbacks run on the receive loop and must return promptly; anything
// slow spawns its own goroutine.
func (s *Subscribers) Add(msgType uint32, cb func(*wearpb.WearPacket)) {
	s.mu.Lock()
	s.subs[msgType] = append(s.subs[msgType], cb)
	s.mu.Unlock()
}

// Dispatch invokes every callback registered for pkt's type, in
// registration order.
func (s *Subscribers) Dispatch(pkt *wearpb.WearPacket) {
	s.mu.RLock()
	cbs := s.subs[uint32(pkt.Type)]
	s.mu.RUnlock()
	for _, cb := range cbs {
		cb(pkt)
	}
}

// Clear removes all subscribers.
func (s *Subscribers) Clear() {
	s.mu.Lock()
	s.subs = make(map[uint32][]func(*wearpb.WearPacket))
	s.mu.Unlock()
}
