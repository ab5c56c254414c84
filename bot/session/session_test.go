package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGateAwaitNoEntry(t *testing.T) {
	g := NewGate()
	start := time.Now()
	sig := g.Await(context.Background(), 1, time.Second)
	if sig != SignalStop {
		t.Fatalf("expected stop, got %v", sig)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("await without entry must return immediately")
	}
}

func TestGateContinue(t *testing.T) {
	g := NewGate()
	if err := g.Begin(7); err != nil {
		t.Fatal(err)
	}
	if !g.Waiting(7) {
		t.Fatal("expected waiting entry")
	}

	done := make(chan Signal, 1)
	go func() {
		done <- g.Await(context.Background(), 7, 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	if !g.Resolve(7, SignalContinue) {
		t.Fatal("resolve should find the open wait")
	}

	select {
	case sig := <-done:
		if sig != SignalContinue {
			t.Fatalf("expected continue, got %v", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("await did not return promptly after resolve")
	}
	if g.Waiting(7) {
		t.Fatal("entry must be consumed")
	}
}

func TestGateTimeout(t *testing.T) {
	g := NewGate()
	if err := g.Begin(3); err != nil {
		t.Fatal(err)
	}
	sig := g.Await(context.Background(), 3, 50*time.Millisecond)
	if sig != SignalTimedOut {
		t.Fatalf("expected timed_out, got %v", sig)
	}
	if g.Waiting(3) {
		t.Fatal("timeout must clear the entry")
	}
	if g.Resolve(3, SignalContinue) {
		t.Fatal("resolve after timeout must report no wait")
	}
}

func TestGateBeginTwice(t *testing.T) {
	g := NewGate()
	if err := g.Begin(5); err != nil {
		t.Fatal(err)
	}
	if err := g.Begin(5); err != ErrWaitOutstanding {
		t.Fatalf("expected ErrWaitOutstanding, got %v", err)
	}
}

func TestGateStop(t *testing.T) {
	g := NewGate()
	if err := g.Begin(9); err != nil {
		t.Fatal(err)
	}
	go g.Resolve(9, SignalStop)
	if sig := g.Await(context.Background(), 9, time.Second); sig != SignalStop {
		t.Fatalf("expected stop, got %v", sig)
	}
}

func TestAnswersOneShot(t *testing.T) {
	ctx := context.Background()
	a := NewAnswers()
	calls := 0
	a.Register(ctx, 1, func(option int) {
		calls++
		if option != 2 {
			t.Errorf("expected option 2, got %d", option)
		}
	})

	if !a.Dispatch(ctx, 1, 2) {
		t.Fatal("first dispatch must invoke the callback")
	}
	if a.Dispatch(ctx, 1, 2) {
		t.Fatal("second dispatch must be a no-op")
	}
	if calls != 1 {
		t.Fatalf("callback ran %d times, want 1", calls)
	}
}

func TestAnswersOverwrite(t *testing.T) {
	ctx := context.Background()
	a := NewAnswers()
	var got string
	a.Register(ctx, 4, func(int) { got = "first" })
	a.Register(ctx, 4, func(int) { got = "second" })
	a.Dispatch(ctx, 4, 0)
	if got != "second" {
		t.Fatalf("latest registration must win, got %q", got)
	}
}

func TestAnswersConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	a := NewAnswers()
	var mu sync.Mutex
	calls := 0
	a.Register(ctx, 8, func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Dispatch(ctx, 8, 0)
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("callback ran %d times, want exactly 1", calls)
	}
}

func TestManagerPending(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	if _, ok := m.Pending(1); ok {
		t.Fatal("fresh manager must have no pending command")
	}
	m.SetPending(ctx, 1, CommandSearchWord)
	m.SetPending(ctx, 1, GameNumerals)
	cmd, ok := m.Pending(1)
	if !ok || cmd != GameNumerals {
		t.Fatalf("latest command must win, got %v", cmd)
	}
	m.ClearPending(ctx, 1)
	if _, ok := m.Pending(1); ok {
		t.Fatal("cleared command still present")
	}
}

func TestManagerGamePerUser(t *testing.T) {
	m := NewManager()
	m.SetGame(1, NumeralsGame{Target: 42, Entry: "四"})
	m.SetGame(2, NumeralsGame{Target: 7})

	g, ok := m.UpdateGame(1, func(g *NumeralsGame) { g.Entry += "十二" })
	if !ok || g.Entry != "四十二" || g.Target != 42 {
		t.Fatalf("unexpected game state: %+v", g)
	}
	if other, _ := m.Game(2); other.Target != 7 || other.Entry != "" {
		t.Fatalf("user 2 state corrupted: %+v", other)
	}

	m.EndGame(1)
	if m.GameInProgress(1) {
		t.Fatal("ended game still in progress")
	}
	if !m.GameInProgress(2) {
		t.Fatal("user 2 game must survive user 1 end")
	}
	if _, ok := m.UpdateGame(1, func(*NumeralsGame) {}); ok {
		t.Fatal("update after end must report no game")
	}
}

func TestManagerExpectedAnswer(t *testing.T) {
	m := NewManager()
	m.SetExpectedAnswer(5, "kana")
	want, ok := m.TakeExpectedAnswer(5)
	if !ok || want != "kana" {
		t.Fatalf("got %q (ok=%v)", want, ok)
	}
	if _, ok := m.TakeExpectedAnswer(5); ok {
		t.Fatal("take must consume the entry")
	}
}
