package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/tiercache"
)

type countHooks struct {
	tiercache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *countHooks) rec(s string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, s)
	c.mu.Unlock()
}

func (c *countHooks) SelfHeal(string, string)            { c.rec("heal") }
func (c *countHooks) StorageError(string, string, error) { c.rec("storage") }
func (c *countHooks) ItemSkipped(string, int, error)     { c.rec("skip") }
func (c *countHooks) ShapeMismatch(string)               { c.rec("mismatch") }
func (c *countHooks) EmptyWrite(string)                  { c.rec("empty") }
func (c *countHooks) Expired(string)                     { c.rec("expired") }

func TestForwardsAllEvents(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 16)
	h.SelfHeal("k", "corrupt")
	h.StorageError("read", "k", errors.New("x"))
	h.ItemSkipped("rows", 1, errors.New("x"))
	h.ShapeMismatch("r")
	h.EmptyWrite("k")
	h.Expired("k")
	h.Close()

	if len(inner.events) != 6 {
		t.Fatalf("events = %v", inner.events)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
}

func TestDropsWhenFullAndAfterClose(t *testing.T) {
	inner := &countHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)
	for i := 0; i < 10; i++ {
		h.Expired("k") // never blocks
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(inner.block)
	h.Close()
	before := h.Dropped()
	h.Expired("k")
	if h.Dropped() != before+1 {
		t.Fatalf("event after Close not counted as dropped")
	}
	h.Close()
}
