package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFanOut(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := m.Subscribe(ctx, "state")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Subscribe(ctx, "state")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Publish(ctx, "state", []byte("snap")); err != nil {
		t.Fatal(err)
	}
	for _, ch := range []<-chan []byte{a, b} {
		select {
		case got := <-ch:
			if string(got) != "snap" {
				t.Errorf("payload = %q", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive")
		}
	}
}

func TestMemoryDropsWhenSubscriberFull(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "state")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < subscriberBuffer+5; i++ {
		if err := m.Publish(ctx, "state", []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", got, subscriberBuffer)
	}
}

func TestMemoryUnsubscribeOnCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "state")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancel")
		}
	}
}

func TestMemoryChannelsAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := m.Subscribe(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Publish(ctx, "state", []byte("snap")); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-other:
		t.Errorf("unexpected payload %q on other channel", got)
	case <-time.After(50 * time.Millisecond):
	}
}
