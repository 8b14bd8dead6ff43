package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	want := Message{Type: "fee_paid", Body: json.RawMessage(`{"studentId":"s1"}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-messages:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	cancel()

	select {
	case _, open := <-messages:
		if open {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestInMemoryPublishDropsWhenFull(t *testing.T) {
	q := NewInMemory(1) // no consumer running

	first := Message{Type: "fee_paid", Body: json.RawMessage(`{"studentId":"s1"}`)}
	if err := q.Publish(context.Background(), first); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	// queue full: must return immediately instead of blocking the caller
	if err := q.Publish(context.Background(), Message{Type: "fee_paid", Body: json.RawMessage(`{"studentId":"s2"}`)}); err != nil {
		t.Fatalf("Publish() on full queue error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case got := <-messages:
		if string(got.Body) != string(first.Body) {
			t.Errorf("got %s, want the first message kept", got.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the kept message")
	}
	select {
	case got := <-messages:
		t.Errorf("overflow message must be dropped, got %s", got.Body)
	case <-time.After(50 * time.Millisecond):
	}
}
