package swarmipc

import "time"

// Request is the client side of a rendezvous slot: it opens an
// existing slot (never creating or unlinking it) and exchanges one
// request/reply pair per Read call.
type Request[T any] struct {
	slot      *Slot
	unmarshal func([]byte) T
	replyWait time.Duration
}

// NewRequest opens an existing rendezvous slot by name. It does not
// create the shared memory or semaphores: if the owner has not
// started yet, the open itself will fail, matching spec's "opens
// existing" client contract.
func NewRequest[T any](name string, bufSize int, unmarshal func([]byte) T) (*Request[T], error) {
	slot, err := openSlot(name, bufSize, false)
	if err != nil {
		return nil, err
	}
	return &Request[T]{slot: slot, unmarshal: unmarshal, replyWait: ReplyWait}, nil
}

// SetReplyWait overrides how long Read waits for the owner's reply
// (ReplyWait by default).
func (r *Request[T]) SetReplyWait(d time.Duration) { r.replyWait = d }

// SendRequest is intentionally a no-op: the request post happens
// inside Read, matching spec's "send_request is intentionally empty"
// note.
func (r *Request[T]) SendRequest() {}

// Read posts the request semaphore, then waits up to replyWait (~1ms
// by default) for the owner's reply post. On timeout it returns the
// zero value and ok=false; per spec this is normal control flow, not
// an error, and callers should simply retry.
func (r *Request[T]) Read() (value T, ok bool, err error) {
	if err := semPost(r.slot.reqSem); err != nil {
		var zero T
		return zero, false, err
	}
	acquired, err := semWait(r.slot.repSem, r.replyWait)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if !acquired {
		var zero T
		return zero, false, nil
	}
	return r.unmarshal(r.slot.buf), true, nil
}

// Close unmaps the shared buffer without removing any of the three
// names: the client never owns the rendezvous.
func (r *Request[T]) Close() error {
	r.slot.teardown(false)
	return nil
}
