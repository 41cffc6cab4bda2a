package realtime

import (
	"context"
	"testing"
	"time"

	"livepoll/internal/domain/vote"
)

func TestPublishReachesRoomSubscribers(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe("p1")
	defer cancelA()
	b, cancelB := hub.Subscribe("p1")
	defer cancelB()
	other, cancelOther := hub.Subscribe("p2")
	defer cancelOther()

	ev := vote.Event{PollID: "p1", OptionID: "o1", Votes: 3, TotalVotes: 5}
	hub.Publish(ev)

	for _, ch := range []<-chan vote.Event{a, b} {
		select {
		case got := <-ch:
			if got != ev {
				t.Fatalf("unexpected event %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	select {
	case got := <-other:
		t.Fatalf("p2 subscriber received p1 event %+v", got)
	default:
	}
}

func TestCancelLeavesRoom(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe("p1")
	if hub.Subscribers("p1") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers("p1"))
	}
	cancel()
	if hub.Subscribers("p1") != 0 {
		t.Fatalf("expected empty room after cancel, got %d", hub.Subscribers("p1"))
	}

	// Publishing into an empty room is a no-op.
	hub.Publish(vote.Event{PollID: "p1", OptionID: "o1"})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe("p1") // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			hub.Publish(vote.Event{PollID: "p1", OptionID: "o1", Votes: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestRunForwardsEngineEvents(t *testing.T) {
	hub := NewHub()
	events := make(chan vote.Event, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, events)

	sub, unsubscribe := hub.Subscribe("p1")
	defer unsubscribe()

	events <- vote.Event{PollID: "p1", OptionID: "o2", Votes: 1, TotalVotes: 1}

	select {
	case got := <-sub:
		if got.OptionID != "o2" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not forwarded to the room")
	}
}
