// Package secret holds passphrases in buffers that are overwritten when
// released. A Passphrase is owned by exactly one Job for its lifetime;
// the owner must call Destroy on every exit path.
package secret

import (
	"crypto/rand"
	"sync"
)

// Passphrase is a secret byte sequence. It never appears in logs or
// error messages: String() returns a redaction marker.
type Passphrase struct {
	mu        sync.Mutex
	buf       []byte
	destroyed bool
}

// New copies b into a fresh Passphrase and scrambles the caller's slice
// so only one live copy remains.
func New(b []byte) *Passphrase {
	p := &Passphrase{buf: make([]byte, len(b))}
	copy(p.buf, b)
	wipe(b)
	return p
}

// FromString builds a Passphrase from operator input. The string itself
// is immutable in Go; callers should drop their reference immediately.
func FromString(s string) *Passphrase {
	return &Passphrase{buf: []byte(s)}
}

// Bytes returns the secret material. The returned slice aliases the
// internal buffer and becomes garbage after Destroy; callers must not
// retain it.
func (p *Passphrase) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil
	}
	return p.buf
}

// Len reports the secret's length without exposing it.
func (p *Passphrase) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Destroy overwrites the buffer with random bytes then zeros. Safe to
// call more than once.
func (p *Passphrase) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	wipe(p.buf)
	p.buf = nil
	p.destroyed = true
}

// Destroyed reports whether the secret has been released.
func (p *Passphrase) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// String implements fmt.Stringer and always redacts.
func (p *Passphrase) String() string { return "[redacted]" }

func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = 0
	}
}
