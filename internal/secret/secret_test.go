package secret

import (
	"bytes"
	"fmt"
	"testing"
)

func TestNewScramblesCallerBuffer(t *testing.T) {
	in := []byte("correct-horse-battery")
	p := New(in)
	defer p.Destroy()

	if bytes.Contains(in, []byte("horse")) {
		t.Fatalf("caller buffer still holds secret material")
	}
	if string(p.Bytes()) != "correct-horse-battery" {
		t.Fatalf("Bytes = %q", p.Bytes())
	}
}

func TestDestroyReleasesMaterial(t *testing.T) {
	p := FromString("hunter2")
	p.Destroy()

	if !p.Destroyed() {
		t.Fatalf("Destroyed() = false after Destroy")
	}
	if got := p.Bytes(); got != nil {
		t.Fatalf("Bytes after Destroy = %q, want nil", got)
	}

	// Double Destroy is a no-op.
	p.Destroy()
}

func TestStringAlwaysRedacts(t *testing.T) {
	p := FromString("hunter2")
	defer p.Destroy()

	if s := fmt.Sprintf("%v %s", p, p); s != "[redacted] [redacted]" {
		t.Fatalf("formatted secret leaked: %q", s)
	}
}

func TestLen(t *testing.T) {
	p := FromString("hunter2")
	if p.Len() != 7 {
		t.Fatalf("Len = %d, want 7", p.Len())
	}
	p.Destroy()
	if p.Len() != 0 {
		t.Fatalf("Len after Destroy = %d, want 0", p.Len())
	}
}
