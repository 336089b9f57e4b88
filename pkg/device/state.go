package device

import (
	"sync"

	"github.com/miwear-protocol/miwear-go/pkg/auth"
)

// DefaultNetworkMTU is the tun MTU used when no per-device value is
// persisted. Values much above 900 overflow the watch-side buffer.
const DefaultNetworkMTU = 800

// State is the mutable per-device state. Reads are concurrent; writes are
// brief (MTU updates, key install, codename cache).
type State struct {
	mu sync.RWMutex

	name         string
	addr         string
	authKey      string
	maxFrameSize int
	networkMTU   uint16
	codename     string
	keys         *auth.Keys
}

// Snapshot is a copy of the device state for persistence and display.
type Snapshot struct {
	Name         string `json:"name"`
	Addr         string `json:"addr"`
	AuthKey      string `json:"authkey"`
	MaxFrameSize int    `json:"max_frame_size"`
	NetworkMTU   uint16 `json:"network_mtu"`
	Codename     string `json:"codename"`
}

// NewState creates device state with the given identity.
func NewState(name, addr string, maxFrameSize int) *State {
	return &State{
		name:         name,
		addr:         addr,
		maxFrameSize: maxFrameSize,
		networkMTU:   DefaultNetworkMTU,
	}
}

// Name returns the device name.
func (s *State) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Addr returns the device MAC address.
func (s *State) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// AuthKey returns the pairing key hex string.
func (s *State) AuthKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authKey
}

// SetAuthKey stores the pairing key hex string.
func (s *State) SetAuthKey(key string) {
	s.mu.Lock()
	s.authKey = key
	s.mu.Unlock()
}

// MaxFrameSize returns the outbound chunk limit.
func (s *State) MaxFrameSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxFrameSize
}

// SetMaxFrameSize adjusts the outbound chunk limit.
func (s *State) SetMaxFrameSize(n int) {
	s.mu.Lock()
	s.maxFrameSize = n
	s.mu.Unlock()
}

// NetworkMTU returns the tun MTU.
func (s *State) NetworkMTU() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.networkMTU
}

// SetNetworkMTU sets the tun MTU.
func (s *State) SetNetworkMTU(mtu uint16) {
	s.mu.Lock()
	if mtu == 0 {
		mtu = DefaultNetworkMTU
	}
	s.networkMTU = mtu
	s.mu.Unlock()
}

// Codename returns the cached product codename.
func (s *State) Codename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codename
}

// SetCodename caches the product codename.
func (s *State) SetCodename(c string) {
	s.mu.Lock()
	s.codename = c
	s.mu.Unlock()
}

// Keys returns the session keys, or nil before authentication.
func (s *State) Keys() *auth.Keys {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// SetKeys installs the session keys. Passing nil clears them.
func (s *State) SetKeys(k *auth.Keys) {
	s.mu.Lock()
	s.keys = k
	s.mu.Unlock()
}

// Authenticated reports whether session keys are installed.
func (s *State) Authenticated() bool {
	return s.Keys() != nil
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Name:         s.name,
		Addr:         s.addr,
		AuthKey:      s.authKey,
		MaxFrameSize: s.maxFrameSize,
		NetworkMTU:   s.networkMTU,
		Codename:     s.codename,
	}
}
