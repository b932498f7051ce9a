package events

import (
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBusFanout(t *testing.T) {
	bus := New(nil)
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	bus.PluginError(2, "boom")

	for _, ch := range []<-chan Event{a, b} {
		ev := recv(t, ch)
		if ev.Kind != PluginError || ev.Index != 2 || ev.Message != "boom" {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	bus.ChainChanged()
	if _, ok := <-ch; ok {
		t.Error("cancelled subscriber received an event")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.ScanComplete()
	bus.ScanComplete()
	if bus.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", bus.Dropped())
	}
	if ev := recv(t, ch); ev.Kind != ScanComplete {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestPublishDoesNotAllocate(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()
	go func() {
		for range ch {
		}
	}()
	allocs := testing.AllocsPerRun(100, func() {
		bus.PluginError(1, "fault")
	})
	if allocs > 0 {
		t.Errorf("Publish allocated %.0f times", allocs)
	}
}

func TestNilBus(t *testing.T) {
	var bus *Bus
	bus.ChainChanged()
	ch, cancel := bus.Subscribe()
	cancel()
	if ch != nil {
		t.Error("nil bus returned a channel")
	}
}

func TestObserve(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	var got []Kind
	done := make(chan struct{})

	stop := bus.Observe(Observer{
		OnChainChanged: func() { mu.Lock(); got = append(got, ChainChanged); mu.Unlock() },
		OnPluginError: func(index int, msg string) {
			mu.Lock()
			got = append(got, PluginError)
			mu.Unlock()
		},
		OnScanComplete: func() {
			mu.Lock()
			got = append(got, ScanComplete)
			mu.Unlock()
			close(done)
		},
	})
	bus.ChainChanged()
	bus.PluginError(0, "x")
	bus.CacheInvalidated("/tmp/a.vst3")
	bus.ScanComplete()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not see scan-complete")
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	want := []Kind{ChainChanged, PluginError, ScanComplete}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	if PluginError.String() != "plugin-error" || Kind(42).String() != "kind(42)" {
		t.Error("unexpected Kind strings")
	}
}
