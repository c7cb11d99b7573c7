// Package secretmanager holds the in-memory copy of the wallet password and clears it again after a configurable
// period of inactivity. Signing operations consult the manager before touching secret material, so a cleared
// password aborts them instead of letting them race the timer.
package secretmanager

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrPasswordCleared is returned when an operation requires the cached password after it has been cleared.
var ErrPasswordCleared = errors.New("password is not available")

// DefaultClearInterval is the period of inactivity after which the cached password is wiped.
const DefaultClearInterval = 5 * time.Minute

// SecretManager caches the wallet password and wipes it after the clear interval elapsed without use. Every
// successful access re-arms the timer.
type SecretManager struct {
	mu              sync.Mutex
	password        []byte
	clearInterval   time.Duration
	clearTimer      *time.Timer
	timerGeneration uint64
	onClear         []func()
}

// New creates a SecretManager with the given clear interval. An interval of zero disables the automatic clearing.
func New(clearInterval time.Duration) *SecretManager {
	return &SecretManager{
		clearInterval: clearInterval,
	}
}

// SetPassword caches the given password and arms the clear timer. A previously cached password is wiped first.
func (s *SecretManager) SetPassword(password []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wipe()
	s.password = make([]byte, len(password))
	copy(s.password, password)
	s.armTimer()
}

// Password returns a copy of the cached password and re-arms the clear timer. It fails with ErrPasswordCleared if
// no password is cached.
func (s *SecretManager) Password() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.password == nil {
		return nil, ErrPasswordCleared
	}
	s.armTimer()

	password := make([]byte, len(s.password))
	copy(password, s.password)

	return password, nil
}

// IsUnlocked returns true if a password is currently cached.
func (s *SecretManager) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.password != nil
}

// Touch re-arms the clear timer without accessing the password.
func (s *SecretManager) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.password != nil {
		s.armTimer()
	}
}

// ClearPassword wipes the cached password immediately.
func (s *SecretManager) ClearPassword() {
	s.mu.Lock()
	clearCallbacks := s.clearLocked()
	s.mu.Unlock()

	for _, callback := range clearCallbacks {
		callback()
	}
}

// SetClearInterval changes the period of inactivity after which the password is wiped. The running timer is re-armed
// with the new interval. An interval of zero disables the automatic clearing.
func (s *SecretManager) SetClearInterval(clearInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearInterval = clearInterval
	if s.password != nil {
		s.armTimer()
	}
}

// ClearInterval returns the currently configured clear interval.
func (s *SecretManager) ClearInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearInterval
}

// OnClear registers a callback that runs whenever the password is cleared, either explicitly or by the timer.
func (s *SecretManager) OnClear(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onClear = append(s.onClear, callback)
}

// clearLocked wipes the password and returns the callbacks to run. The caller holds the lock and must invoke the
// callbacks after releasing it.
func (s *SecretManager) clearLocked() []func() {
	if s.password == nil {
		return nil
	}
	s.wipe()
	if s.clearTimer != nil {
		s.clearTimer.Stop()
		s.clearTimer = nil
	}

	return s.onClear
}

// armTimer restarts the clear timer. Stopping a fired timer does not cancel its callback, so every arm bumps a
// generation counter and a callback from an older generation is ignored. The caller holds the lock.
func (s *SecretManager) armTimer() {
	if s.clearTimer != nil {
		s.clearTimer.Stop()
		s.clearTimer = nil
	}
	s.timerGeneration++
	if s.clearInterval <= 0 {
		return
	}

	generation := s.timerGeneration
	s.clearTimer = time.AfterFunc(s.clearInterval, func() {
		s.mu.Lock()
		if generation != s.timerGeneration {
			s.mu.Unlock()

			return
		}
		clearCallbacks := s.clearLocked()
		s.mu.Unlock()

		for _, callback := range clearCallbacks {
			callback()
		}
	})
}

// wipe zeroes and drops the cached password. The caller holds the lock.
func (s *SecretManager) wipe() {
	for i := range s.password {
		s.password[i] = 0
	}
	s.password = nil
}
