package xchan

import (
	"context"
	"testing"
	"time"
)

func TestOutputSubscribeAndChanged(t *testing.T) {
	out := NewOutput(Timed[int]{Time: 0, Payload: 1})
	rx := out.Subscribe()

	done := make(chan struct{})
	var got Timed[int]
	go func() {
		v, ok := rx.Changed()
		if !ok {
			t.Errorf("expected ok=true")
		}
		got = v
		close(done)
	}()

	out.Send(Timed[int]{Time: 1, Payload: 42})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Changed")
	}
	if got.Payload != 42 || got.Time != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestOutputCloseUnblocksReceivers(t *testing.T) {
	out := NewOutput(Timed[int]{Payload: 1})
	rx := out.Subscribe()

	done := make(chan bool)
	go func() {
		_, ok := rx.Changed()
		done <- ok
	}()

	out.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close to unblock Changed")
	}
}

func TestOutputGetAndUpdateMarksSeen(t *testing.T) {
	out := NewOutput(Timed[int]{Payload: 1})
	rx := out.Subscribe()
	out.Send(Timed[int]{Payload: 2})

	if !rx.HasChanged() {
		t.Fatal("expected HasChanged to be true")
	}
	v := rx.GetAndUpdate()
	if v.Payload != 2 {
		t.Fatalf("got %+v", v)
	}
	if rx.HasChanged() {
		t.Fatal("expected HasChanged to be false after GetAndUpdate")
	}
}

func TestOutputDeepCopyIsolatesReader(t *testing.T) {
	type payload struct{ Vals []int }
	out := NewOutput(Timed[payload]{Payload: payload{Vals: []int{1, 2, 3}}})
	rx := out.Subscribe()
	v := rx.Get()
	v.Payload.Vals[0] = 999
	if out.value.Payload.Vals[0] == 999 {
		t.Fatal("mutating a received copy corrupted the shared value")
	}
}

func TestInputSendRecvRoundTrip(t *testing.T) {
	in := NewInput[int](1)
	sender := in.Sender()
	if err := sender.Send(context.Background(), 7); err != nil {
		t.Fatalf("Send: %v", err)
	}
	v, ok := in.Recv(context.Background())
	if !ok || v != 7 {
		t.Fatalf("got %v, %v", v, ok)
	}
	if !in.HasLast() || in.Last() != 7 {
		t.Fatalf("expected cached last value 7, got %v", in.Last())
	}
}

func TestInputRecvReturnsCacheOnClose(t *testing.T) {
	in := NewInput[int](1)
	sender := in.Sender()
	sender.TrySend(5)
	in.Recv(context.Background())
	sender.Close()

	v, ok := in.Recv(context.Background())
	if ok {
		t.Fatal("expected ok=false after close")
	}
	if v != 5 {
		t.Fatalf("expected cached last value on close, got %v", v)
	}
}

func TestInputTrySendFullReturnsFalse(t *testing.T) {
	in := NewInput[int](1)
	sender := in.Sender()
	if !sender.TrySend(1) {
		t.Fatal("expected first TrySend to succeed")
	}
	if sender.TrySend(2) {
		t.Fatal("expected TrySend on a full channel to fail")
	}
}
