package service

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var errBodyReleased = errors.New("upload body released for replay")

// replayBody streams an inbound upload to the first attempt while recording
// it, so later attempts can resend the identical bytes.
type replayBody struct {
	mu      sync.Mutex
	inbound io.Reader
	tee     io.Reader
	buf     bytes.Buffer
	closed  bool
	readErr error // first non-EOF error from inbound
}

func newReplayBody(inbound io.Reader) *replayBody {
	r := &replayBody{inbound: inbound}
	r.tee = io.TeeReader(inbound, &r.buf)
	return r
}

// Read feeds the first attempt. It fails once the body has been released.
func (r *replayBody) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, errBodyReleased
	}
	n, err := r.tee.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && r.readErr == nil {
		r.readErr = err
	}
	return n, err
}

// Err reports the first error reading the inbound upload. Such an error is
// the caller's, not the vendor's.
func (r *replayBody) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

// Close releases the streaming side. The transport calls it when it is done
// with the request body; Replay calls it too, so a transport goroutine that
// is still writing cannot interleave with the replay.
func (r *replayBody) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Replay returns the complete upload: whatever the first attempt recorded plus
// the remainder it never consumed.
func (r *replayBody) Replay() (*bytes.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.readErr != nil {
		return nil, r.readErr
	}
	if _, err := io.Copy(&r.buf, r.inbound); err != nil {
		r.readErr = err
		return nil, err
	}
	return bytes.NewReader(r.buf.Bytes()), nil
}
