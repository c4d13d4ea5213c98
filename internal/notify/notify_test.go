package notify

import (
	"context"
	"errors"
	"testing"
)

type failing struct{}

func (failing) Notify(context.Context, Event) error { return errors.New("smtp down") }

func TestDispatcherDelivers(t *testing.T) {
	inbox := NewMemoryInbox(10)
	d := NewDispatcher(inbox)
	d.Send(
		NewEvent(ChangeRequested, 1, 7, "first"),
		NewEvent(ChangeResolved, 1, 7, "second"),
		NewEvent(ChangeResolved, 2, 7, "other user"),
	)
	d.Wait()

	if got := len(inbox.All()); got != 3 {
		t.Fatalf("delivered %d events, want 3", got)
	}
	recent, err := inbox.Recent(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("user 1 has %d events, want 2", len(recent))
	}
}

func TestDispatcherSwallowsErrors(t *testing.T) {
	d := NewDispatcher(failing{})
	d.Send(NewEvent(DirectMutation, 1, 1, "x"))
	d.Wait()
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Send(NewEvent(DirectMutation, 1, 1, "x"))
	d.Wait()
}

func TestMemoryInboxCapsPerUser(t *testing.T) {
	inbox := NewMemoryInbox(2)
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		if err := inbox.Notify(ctx, NewEvent(ChangeResolved, 5, 1, msg)); err != nil {
			t.Fatal(err)
		}
	}
	recent, _ := inbox.Recent(ctx, 5, 0)
	if len(recent) != 2 || recent[0].Message != "c" || recent[1].Message != "b" {
		t.Fatalf("recent = %+v", recent)
	}
}
