package effects

import "sync"

// ledger remembers, for one binding, the encoding last known to match what the
// host stores under the binding's key. It is the only state the echo check reads.
type ledger struct {
	mu    sync.Mutex
	enc   string
	known bool
}

// decision is the outcome of a local change: write data back, or do nothing.
type decision struct {
	write bool
	data  string
}

// local decides whether a locally produced encoding has to be written back. When
// it does, data becomes the expected host state.
func (l *ledger) local(data string) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.known && l.enc == data {
		return decision{}
	}

	l.enc, l.known = data, true

	return decision{write: true, data: data}
}

// remote records an encoding that came from the host.
func (l *ledger) remote(data string) {
	l.mu.Lock()
	l.enc, l.known = data, true
	l.mu.Unlock()
}

// failed forgets data if it is still the expected host state, so the next local
// change is written even when it encodes the same.
func (l *ledger) failed(data string) {
	l.mu.Lock()
	if l.known && l.enc == data {
		l.known = false
	}
	l.mu.Unlock()
}
