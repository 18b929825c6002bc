package service

import (
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultOTPTTL is how long a password-reset code stays redeemable.
	DefaultOTPTTL = 5 * time.Minute

	otpSweepInterval = time.Minute
)

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore holds in-flight password-reset codes in memory. One live code per
// key: requesting a new code overwrites the previous one. Codes are
// single-use and expire after the TTL; a background sweeper drops expired
// entries so the map never grows unbounded.
//
// Keys are "owner:<email>" for platform accounts and "<apiKey>:<email>" for
// end-users, which keeps tenants from colliding on the same address.
type OTPStore struct {
	Logger *slog.Logger

	ttl time.Duration

	mu    sync.Mutex
	codes map[string]otpEntry

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewOTPStore creates an OTP store. If ttl is 0 or negative it defaults to
// DefaultOTPTTL. Call Start to begin the sweeper and Stop on shutdown.
func NewOTPStore(logger *slog.Logger, ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}

	return &OTPStore{
		Logger: logger,
		ttl:    ttl,
		codes:  make(map[string]otpEntry),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sweeper. Non-blocking; call Stop to shut down.
func (s *OTPStore) Start() {
	go s.run()
	s.Logger.Info("otp store started", "ttl", s.ttl)
}

// Stop shuts down the sweeper and blocks until it has exited.
func (s *OTPStore) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("otp store stopped")
}

func (s *OTPStore) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(otpSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Put stores a code for key, replacing any code already pending.
func (s *OTPStore) Put(key, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[key] = otpEntry{
		code:      code,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Consume redeems the code for key. On a match the code is removed so it can
// never be redeemed twice. Failed attempts leave the pending code in place
// until it expires.
func (s *OTPStore) Consume(key, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[key]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.codes, key)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return false
	}

	delete(s.codes, key)
	return true
}

// Len reports how many codes are currently pending. Used by tests and the
// sweep log line.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *OTPStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	var removed int
	for key, entry := range s.codes {
		if now.After(entry.expiresAt) {
			delete(s.codes, key)
			removed++
		}
	}
	remaining := len(s.codes)
	s.mu.Unlock()

	if removed > 0 {
		s.Logger.Debug("swept expired otp codes", "removed", removed, "remaining", remaining)
	}
}
