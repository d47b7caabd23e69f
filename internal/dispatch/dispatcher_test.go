package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
		return nil
	}
}

func TestDispatcher_SendDelivers(t *testing.T) {
	d := New(0, nil)
	defer d.Close(context.Background()) //nolint:errcheck // Test cleanup

	got := make(chan any, 1)
	d.Connect(SignalDeviceUpdate, func(p any) { got <- p })

	if !d.Send(SignalDeviceUpdate, "main_house") {
		t.Fatal("Send() = false, want true")
	}
	if v := waitFor(t, got); v != "main_house" {
		t.Errorf("payload = %v, want main_house", v)
	}
}

func TestDispatcher_OnlyMatchingSignal(t *testing.T) {
	d := New(0, nil)

	var mu sync.Mutex
	var calls []string
	marker := make(chan any, 1)
	d.Connect("a", func(any) { mu.Lock(); calls = append(calls, "a"); mu.Unlock(); marker <- nil })
	d.Connect("b", func(any) { mu.Lock(); calls = append(calls, "b"); mu.Unlock() })

	d.Send("a", nil)
	waitFor(t, marker)
	d.Send("a", nil)
	waitFor(t, marker)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(calls) != 2 || calls[0] != "a" || calls[1] != "a" {
		t.Errorf("calls = %v, want [a a]", calls)
	}
}

func TestDispatcher_Disconnect(t *testing.T) {
	d := New(0, nil)

	count := 0
	disconnect := d.Connect(SignalDeviceUpdate, func(any) { count++ })
	marker := make(chan any, 1)
	d.Connect(SignalDeviceUpdate, func(p any) { marker <- p })

	d.Send(SignalDeviceUpdate, 1)
	waitFor(t, marker)

	disconnect()
	disconnect()

	d.Send(SignalDeviceUpdate, 2)
	waitFor(t, marker)
	d.Close(context.Background()) //nolint:errcheck // Test cleanup

	if count != 1 {
		t.Errorf("disconnected handler called %d times, want 1", count)
	}
}

func TestDispatcher_HandlerPanicDoesNotStopWorker(t *testing.T) {
	d := New(0, nil)
	defer d.Close(context.Background()) //nolint:errcheck // Test cleanup

	got := make(chan any, 1)
	d.Connect("s", func(any) { panic("boom") })
	d.Connect("s", func(p any) { got <- p })

	d.Send("s", "first")
	if v := waitFor(t, got); v != "first" {
		t.Errorf("payload = %v, want first", v)
	}
}

func TestDispatcher_CoalescesWhileListenerBusy(t *testing.T) {
	d := New(1, nil)

	release := make(chan struct{})
	started := make(chan any, 1)
	var mu sync.Mutex
	var got []any
	d.Connect("slow", func(p any) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		started <- nil
		<-release
	})

	d.Send("slow", 1)
	waitFor(t, started)

	for i := 2; i <= 10; i++ {
		if !d.Send("slow", i) {
			t.Fatalf("Send(%d) = false, want merged into the waiting signal", i)
		}
	}

	close(release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 1 || got[1] != 10 {
		t.Errorf("payloads = %v, want [1 10]", got)
	}
}

func TestDispatcher_QueueFullDropsDistinctSignal(t *testing.T) {
	d := New(1, nil)

	release := make(chan struct{})
	started := make(chan any, 1)
	d.Connect("slow", func(any) {
		started <- nil
		<-release
	})

	d.Send("slow", nil)
	waitFor(t, started)

	if !d.Send("other", nil) {
		t.Fatal("Send(other) should fit in the queue")
	}
	if d.Send("third", nil) {
		t.Error("Send(third) = true, want dropped while queue is full")
	}
	if !d.Send("other", nil) {
		t.Error("repeated Send(other) = false, want merged")
	}

	close(release)
	d.Close(context.Background()) //nolint:errcheck // Test cleanup
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	d := New(0, nil)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if d.Send("s", nil) {
		t.Error("Send() after Close() = true, want false")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
