package secretmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestPasswordLifecycle(t *testing.T) {
	manager := New(0)

	_, err := manager.Password()
	assert.ErrorIs(t, err, ErrPasswordCleared)
	assert.False(t, manager.IsUnlocked())

	manager.SetPassword([]byte("correct horse battery staple"))
	assert.True(t, manager.IsUnlocked())

	password, err := manager.Password()
	require.NoError(t, err)
	assert.Equal(t, []byte("correct horse battery staple"), password)

	// the returned copy must not alias the cached password
	password[0] = 'X'
	cachedPassword, err := manager.Password()
	require.NoError(t, err)
	assert.Equal(t, []byte("correct horse battery staple"), cachedPassword)

	manager.ClearPassword()
	assert.False(t, manager.IsUnlocked())
	_, err = manager.Password()
	assert.ErrorIs(t, err, ErrPasswordCleared)
}

func TestAutomaticClear(t *testing.T) {
	manager := New(50 * time.Millisecond)

	cleared := make(chan struct{})
	manager.OnClear(func() {
		close(cleared)
	})

	manager.SetPassword([]byte("secret"))
	assert.True(t, manager.IsUnlocked())

	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("password was not cleared by the inactivity timer")
	}
	assert.False(t, manager.IsUnlocked())
}

func TestAccessReArmsTimer(t *testing.T) {
	manager := New(120 * time.Millisecond)
	manager.SetPassword([]byte("secret"))

	// keep touching the manager more often than the clear interval
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		manager.Touch()
	}
	assert.True(t, manager.IsUnlocked())

	// without activity the timer fires
	assert.Eventually(t, func() bool {
		return !manager.IsUnlocked()
	}, time.Second, 10*time.Millisecond)
}

func TestStaleTimerFireDoesNotClearReArmedPassword(t *testing.T) {
	manager := New(60 * time.Millisecond)

	clearCount := atomic.NewInt32(0)
	manager.OnClear(func() {
		clearCount.Inc()
	})
	manager.SetPassword([]byte("secret"))

	// touches close to the deadline race the firing timer, a fire from before the touch must not wipe anything
	for i := 0; i < 20; i++ {
		time.Sleep(50 * time.Millisecond)
		manager.Touch()
	}
	time.Sleep(20 * time.Millisecond)

	assert.True(t, manager.IsUnlocked())
	assert.Zero(t, clearCount.Load())
}

func TestDisabledClearInterval(t *testing.T) {
	manager := New(0)
	manager.SetPassword([]byte("secret"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, manager.IsUnlocked())

	// enabling an interval arms the timer for the cached password
	manager.SetClearInterval(20 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return !manager.IsUnlocked()
	}, time.Second, 5*time.Millisecond)
}
