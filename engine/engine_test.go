package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_HeadlessRunStopsOnQuit(t *testing.T) {
	e := NewEngine(WithTickRate(500))

	var ticks atomic.Int32
	e.SetTickCallback(func(dt float32) {
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))

	// A second Quit is a no-op.
	e.Quit()
}

func TestEngine_RequestResizeKeepsLatest(t *testing.T) {
	e := NewEngine().(*engine)

	e.requestResize(640, 480)
	e.requestResize(1024, 768)

	select {
	case sz := <-e.resizeChannel:
		assert.Equal(t, size{1024, 768}, sz)
	default:
		t.Fatal("no pending resize")
	}
}

func TestEngine_Scenes(t *testing.T) {
	e := NewEngine()
	assert.Nil(t, e.Scene(0))
	assert.Empty(t, e.Scenes())
	assert.Nil(t, e.Window())
}

func TestEngine_SetTickRateBeforeRun(t *testing.T) {
	e := NewEngine().(*engine)
	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.engineTickRate)

	e.SetTickRate(120)
	require.Equal(t, time.Duration(float64(time.Second)/120), e.engineTickRate)

	e.SetRenderFrameLimit(30)
	assert.Equal(t, time.Duration(float64(time.Second)/30), e.renderFrameLimit)
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
}
