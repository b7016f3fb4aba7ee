package hub

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taleforge/taleforge/internal/wire"
)

// fakeStream is an in-memory connection end. Writes land in a buffer unless
// the stream is set to fail.
type fakeStream struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	failWrites bool
	closed     bool
}

func (f *fakeStream) Read(p []byte) (int, error) { return 0, io.EOF }

func (f *fakeStream) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return 0, errors.New("broken pipe")
	}
	return f.buf.Write(p)
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// frames decodes every frame written so far.
func (f *fakeStream) frames(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	r := bytes.NewReader(f.buf.Bytes())
	for {
		msg, err := wire.RecvFrame(r)
		if errors.Is(err, wire.ErrClosed) {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	h := New()
	c := wire.NewConn(&fakeStream{})

	h.Register(c)
	h.Register(c)
	assert.Equal(t, 1, h.Len())

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Len())
}

func TestBroadcastReachesAllMembers(t *testing.T) {
	h := New()
	streams := []*fakeStream{{}, {}, {}}
	for _, s := range streams {
		h.Register(wire.NewConn(s))
	}

	h.Broadcast("hello everyone")

	for i, s := range streams {
		assert.Equal(t, []string{"hello everyone"}, s.frames(t), "stream %d", i)
	}
}

func TestBroadcastDropsFailingMember(t *testing.T) {
	h := New()
	healthy1 := &fakeStream{}
	failing := &fakeStream{failWrites: true}
	healthy2 := &fakeStream{}

	h.Register(wire.NewConn(healthy1))
	h.Register(wire.NewConn(failing))
	h.Register(wire.NewConn(healthy2))

	h.Broadcast("first")

	// The failing member is dropped and closed; the healthy ones still got
	// the message.
	assert.Equal(t, 2, h.Len())
	assert.True(t, failing.closed)
	assert.Equal(t, []string{"first"}, healthy1.frames(t))
	assert.Equal(t, []string{"first"}, healthy2.frames(t))

	h.Broadcast("second")
	assert.Equal(t, []string{"first", "second"}, healthy1.frames(t))
	assert.Equal(t, []string{"first", "second"}, healthy2.frames(t))
}

func TestCloseAll(t *testing.T) {
	h := New()
	streams := []*fakeStream{{}, {}}
	for _, s := range streams {
		h.Register(wire.NewConn(s))
	}

	h.CloseAll()

	assert.Equal(t, 0, h.Len())
	for i, s := range streams {
		assert.True(t, s.closed, "stream %d", i)
	}
}
