package praxis

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// destroyer is the part of every engine session the slot manages.
type destroyer interface {
	Destroy()
}

type heldSession[S destroyer] struct {
	session S
	gen     uint64
}

// sessionSlot lazily holds at most one session per key for a capability.
// The language model and rewriter use a single key; the translator keys by
// language pair, so a session serving one pair is never torn down because
// another pair was requested. Concurrent first calls for a key share a
// single creation.
type sessionSlot[S destroyer] struct {
	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]heldSession[S]
	gen      uint64
	closed   bool
	created  int
}

// get returns the held session for key, creating it if needed. The
// generation identifies the returned session for invalidate.
//
// The shared creation runs detached from any single caller's context, so a
// caller that gives up does not fail the others waiting on it. create must
// bound itself.
func (s *sessionSlot[S]) get(ctx context.Context, key string, create func(context.Context) (S, error)) (S, uint64, error) {
	var zero S

	if sess, gen, ok, err := s.current(key); err != nil || ok {
		return sess, gen, err
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if sess, gen, ok, err := s.current(key); err != nil {
			return nil, err
		} else if ok {
			return heldSession[S]{sess, gen}, nil
		}

		sess, err := create(detached)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			sess.Destroy()
			return nil, ErrAdapterDestroyed
		}
		if s.sessions == nil {
			s.sessions = make(map[string]heldSession[S])
		}
		s.gen++
		h := heldSession[S]{sess, s.gen}
		s.sessions[key] = h
		s.created++
		return h, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, 0, r.Err
		}
		h := r.Val.(heldSession[S])
		return h.session, h.gen, nil
	case <-ctx.Done():
		return zero, 0, ctx.Err()
	}
}

func (s *sessionSlot[S]) current(key string) (S, uint64, bool, error) {
	var zero S
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zero, 0, false, ErrAdapterDestroyed
	}
	if h, ok := s.sessions[key]; ok {
		return h.session, h.gen, true, nil
	}
	return zero, 0, false, nil
}

// invalidate drops the session of generation gen held for key, if it is
// still held.
func (s *sessionSlot[S]) invalidate(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[key]
	if !ok || h.gen != gen {
		return
	}
	h.session.Destroy()
	delete(s.sessions, key)
}

// destroy releases every held session and refuses new ones. Idempotent.
func (s *sessionSlot[S]) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.sessions {
		h.session.Destroy()
	}
	s.sessions = nil
	s.closed = true
}

// held reports how many sessions are currently held.
func (s *sessionSlot[S]) held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// creations reports how many sessions this slot has created.
func (s *sessionSlot[S]) creations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}
