package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingConn records writes and flags any overlapping WriteJSON calls
type countingConn struct {
	writes  int64
	active  int64
	overlap int64
	fail    bool
}

func (c *countingConn) WriteJSON(v interface{}) error {
	if atomic.AddInt64(&c.active, 1) > 1 {
		atomic.AddInt64(&c.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt64(&c.active, -1)
	atomic.AddInt64(&c.writes, 1)
	if c.fail {
		return errors.New("write failed")
	}
	return nil
}

func TestSendSerializesWritesPerConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &countingConn{}
	hub.Register("u-mgr-1", conn)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Send("u-mgr-1", map[string]string{"title": "Approval required"})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 32, atomic.LoadInt64(&conn.writes))
	assert.Zero(t, atomic.LoadInt64(&conn.overlap))
}

func TestSendFansOutToAllConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := &countingConn{}
	b := &countingConn{}
	hub.Register("u-mgr-1", a)
	hub.Register("u-mgr-1", b)
	other := &countingConn{}
	hub.Register("u-fin-1", other)

	hub.Send("u-mgr-1", "hello")

	assert.EqualValues(t, 1, a.writes)
	assert.EqualValues(t, 1, b.writes)
	assert.Zero(t, other.writes)
}

func TestSendAfterUnregisterIsNoOp(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &countingConn{}
	hub.Register("u-mgr-1", conn)
	hub.Unregister("u-mgr-1", conn)

	hub.Send("u-mgr-1", "hello")
	assert.Zero(t, conn.writes)
}

func TestSendSwallowsWriteFailures(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &countingConn{fail: true}
	hub.Register("u-mgr-1", conn)

	require.NotPanics(t, func() { hub.Send("u-mgr-1", "hello") })
	assert.EqualValues(t, 1, conn.writes)
}

func TestRegisterConcurrentWithSend(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &countingConn{}
			hub.Register("u-mgr-1", conn)
			hub.Send("u-mgr-1", "hello")
			hub.Unregister("u-mgr-1", conn)
		}()
	}
	wg.Wait()
}
