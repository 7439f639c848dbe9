package notify

import "testing"

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Broadcast()

	select {
	case <-ch1:
	default:
		t.Error("subscriber 1 did not receive broadcast")
	}
	select {
	case <-ch2:
	default:
		t.Error("subscriber 2 did not receive broadcast")
	}
}

func TestHub_BroadcastsCoalesce(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Broadcast()
	hub.Broadcast()
	hub.Broadcast()

	// One pending signal, not three.
	<-ch
	select {
	case <-ch:
		t.Error("expected coalesced broadcasts to leave a single signal")
	default:
	}
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	cancel()
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", hub.SubscriberCount())
	}

	// Cancel twice must not panic.
	cancel()
}

func TestHub_CloseClosesSubscriberChannels(t *testing.T) {
	hub := NewHub()
	ch, _ := hub.Subscribe()

	hub.Close()

	if _, open := <-ch; open {
		t.Error("expected subscriber channel to be closed")
	}

	// Operations on a closed hub are no-ops.
	hub.Broadcast()
	late, cancel := hub.Subscribe()
	defer cancel()
	if _, open := <-late; open {
		t.Error("expected post-close subscription to return a closed channel")
	}
}
