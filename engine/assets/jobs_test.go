package assets

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestJobSystemRunsEveryTask(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("zero workers: %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("negative channel: %v", err)
	}

	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	var completed, failed atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 20; i++ {
		i := i
		js.Submit(JobTask{
			Run: func() error {
				if i%5 == 0 {
					return boom
				}
				return nil
			},
			OnFailure: func(err error) {
				if errors.Is(err, boom) {
					failed.Add(1)
				}
			},
			OnComplete: func() { completed.Add(1) },
		})
	}
	js.Shutdown()
	if completed.Load() != 16 || failed.Load() != 4 {
		t.Errorf("%d completed, %d failed", completed.Load(), failed.Load())
	}
}
