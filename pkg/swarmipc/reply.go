package swarmipc

import "time"

// Reply is the owner ("server") side of a rendezvous slot sized for a
// T-shaped fixed payload. Only Owner calls unlink its names on Close.
type Reply[T any] struct {
	slot       *Slot
	marshal    func(T) []byte
	replyWait  time.Duration
	requestLen time.Duration
}

// NewReply creates (or takes over) the named rendezvous slot of size
// bufSize, draining any stale posts left by a prior crashed owner, the
// same "drain both semaphores" step the spec's constructor performs.
func NewReply[T any](name string, bufSize int, marshal func(T) []byte) (*Reply[T], error) {
	slot, err := openSlot(name, bufSize, true)
	if err != nil {
		return nil, err
	}
	semDrainNonBlocking(slot.reqSem)
	semDrainNonBlocking(slot.repSem)
	return &Reply[T]{slot: slot, marshal: marshal, replyWait: ReplyWait, requestLen: RequestWait}, nil
}

// Available blocks up to RequestWait for a client's request post,
// returning true iff one was acquired within the window.
func (r *Reply[T]) Available() (bool, error) {
	return semWait(r.slot.reqSem, r.requestLen)
}

// Write copies value's marshaled form into the shared buffer
// (truncating/NUL-padding per spec's fixed-size contract) and posts
// the reply semaphore.
func (r *Reply[T]) Write(value T) error {
	data := r.marshal(value)
	copy(r.slot.buf, data)
	for i := len(data); i < len(r.slot.buf); i++ {
		r.slot.buf[i] = 0
	}
	return semPost(r.slot.repSem)
}

// Close zeroes the buffer, unmaps it, and removes all three names:
// the owner is the only side permitted to unlink.
func (r *Reply[T]) Close() error {
	r.slot.teardown(true)
	return nil
}
