package utils

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/psm/logging"
)

func TestQueueDrain(t *testing.T) {
	var q Queue[int]
	test.That(t, q.Drain(), test.ShouldBeEmpty)

	q.Push(1, 2)
	q.Push(3)
	test.That(t, q.Len(), test.ShouldEqual, 3)
	test.That(t, q.Drain(), test.ShouldResemble, []int{1, 2, 3})
	test.That(t, q.Len(), test.ShouldEqual, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(j)
			}
		}()
	}
	wg.Wait()
	test.That(t, len(q.Drain()), test.ShouldEqual, 1000)
}

func TestStoppableWorkers(t *testing.T) {
	started := make(chan struct{})
	sw := NewStoppableWorkers(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started
	sw.Stop()
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// Adding after stop is a no-op.
	ran := false
	sw.AddWorkers(func(context.Context) { ran = true })
	sw.Stop()
	test.That(t, ran, test.ShouldBeFalse)

	parent, cancel := context.WithCancel(context.Background())
	child := NewStoppableWorkersWithContext(parent, func(ctx context.Context) { <-ctx.Done() })
	cancel()
	<-child.Context().Done()
	child.Stop()
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()

	err := CheckFileReadable(filepath.Join(dir, "missing.bag"))
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	empty := filepath.Join(dir, "empty.bag")
	test.That(t, os.WriteFile(empty, nil, 0o600), test.ShouldBeNil)
	test.That(t, errors.Is(CheckFileReadable(empty), ErrFileEmpty), test.ShouldBeTrue)

	full := filepath.Join(dir, "full.bag")
	test.That(t, os.WriteFile(full, []byte("x"), 0o600), test.ShouldBeNil)
	test.That(t, CheckFileReadable(full), test.ShouldBeNil)
	test.That(t, CheckFileReadable(dir), test.ShouldNotBeNil)

	RemoveFileNoError(full)
	_, err = os.Stat(full)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestMath(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, Clamp01(1.5), test.ShouldEqual, 1)
	test.That(t, Clamp01(math.NaN()), test.ShouldEqual, 0)
	test.That(t, math.IsInf(SafeLog(0), -1), test.ShouldBeTrue)
	test.That(t, SafeLog(math.E), test.ShouldAlmostEqual, 1)
	test.That(t, NewOutOfRangeError("row", 3, 2).Error(), test.ShouldEqual, "row index 3 out of range [0, 2)")
}

func TestSlowLoggerStops(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	stop := SlowLogger(context.Background(), "still reading", "bag", "kitchen.bag", logger)
	stop()
	test.That(t, logs.FilterMessage("still reading").Len(), test.ShouldEqual, 0)
}
