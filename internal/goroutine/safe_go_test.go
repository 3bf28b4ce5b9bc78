package goroutine

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	l, hook := test.NewNullLogger()
	rh := NewRecoveryHandler(l)

	done := make(chan struct{})
	rh.SafeGo("boom", func() {
		defer close(done)
		panic("boom")
	})
	<-done

	assert.Eventually(t, func() bool { return len(hook.AllEntries()) == 1 }, time.Second, 5*time.Millisecond)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data["goroutine"])
}

func TestEvery_RunsUntilCancelled(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	rh := NewRecoveryHandler(l)

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	rh.Every(ctx, "tick", 5*time.Millisecond, func(context.Context) {
		if atomic.AddInt32(&calls, 1) == 2 {
			panic("second call")
		}
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
}
