package engine

import "sync"

type envelope struct {
	name    string
	payload any
}

// mailbox is an unbounded FIFO of signals for one instance. Senders never
// block; the instance goroutine is woken through notify. Once closed it
// refuses new signals.
type mailbox struct {
	mu     sync.Mutex
	items  []envelope
	closed bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// push queues env and reports whether the mailbox accepted it.
func (m *mailbox) push(env envelope) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, env)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return envelope{}, false
	}
	env := m.items[0]
	m.items[0] = envelope{}
	m.items = m.items[1:]
	return env, true
}

// close refuses further pushes and returns the signals nobody handled.
func (m *mailbox) close() []envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	out := m.items
	m.items = nil
	return out
}
