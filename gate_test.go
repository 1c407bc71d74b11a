package box2

import (
	"errors"
	"sync"
	"testing"
)

func TestGateWaitAfterOpen(t *testing.T) {
	g := &gate{}
	g.open(nil)
	if err := g.wait(); err != nil {
		t.Fatal(err)
	}
}

func TestGateReleasesWaitersWithResult(t *testing.T) {
	g := &gate{}
	want := errors.New("open failed")

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- g.wait()
		}()
	}

	g.open(want)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, want) {
			t.Errorf("waiter got %v, want %v", err, want)
		}
	}
}

func TestGateOpenIsOneShot(t *testing.T) {
	g := &gate{}
	first := errors.New("first")
	g.open(first)
	g.open(nil)
	if err := g.wait(); !errors.Is(err, first) {
		t.Errorf("got %v, want the first open result", err)
	}
}
