// Package engine runs the window, the fixed-rate tick loop and the render loop of the viewer.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/panoview/engine/profiler"
	"github.com/Carmen-Shannon/panoview/engine/scene"
	"github.com/Carmen-Shannon/panoview/engine/window"
)

// size is a framebuffer size handed from the window thread to the render thread.
type size struct {
	width, height int
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // dynamic tick rate updates
	resizeChannel   chan size          // pending surface size, applied on the render thread

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window
	logger *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine orchestrates the tick loop, the render loop and the window.
type Engine interface {
	// Window returns the underlying window, nil for a headless engine.
	Window() window.Window

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick. The viewer advances its
	// crossfades and texture refreshes here.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Scene retrieves the scene registered at the given z-index key, or nil.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Run starts the loops and runs the window message loop. Blocks until the window closes.
	Run()

	// Quit signals all engine goroutines to stop; Run returns once they have. Safe to call from the
	// tick and render callbacks and safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		resizeChannel:   make(chan size, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.requestResize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	e.handle()
	if e.window == nil {
		<-e.quitChannel
		e.wg.Wait()
		return
	}

	// The window must outlive the render loop, so it is closed on the main thread only after the
	// loops have stopped.
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.wg.Wait()
			if err := e.window.Close(); err != nil {
				e.logger.Warn("failed to close window", "error", err)
			}
		default:
		}
	})
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the engine and render goroutines.
func (e *engine) handle() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// requestResize keeps only the latest size; the render loop applies it before the next frame so
// the surface is never reconfigured while a frame is being recorded.
func (e *engine) requestResize(width, height int) {
	select {
	case <-e.resizeChannel:
	default:
	}
	select {
	case e.resizeChannel <- size{width, height}:
	default:
	}
}

// handleEngine runs the fixed-rate tick loop until the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer e.recoverPanic("engine")

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop: apply a pending resize, prepare every active scene, then draw
// them all within one frame in ascending z-index order.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer e.recoverPanic("render")

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		lastRender = time.Now()

		activeScenes := e.activeScenes()

		select {
		case sz := <-e.resizeChannel:
			e.applyResize(sz)
		default:
		}

		if len(activeScenes) > 0 {
			e.renderFrame(activeScenes)
		}

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		} else if len(activeScenes) == 0 {
			// Nothing presents, so nothing blocks on vsync.
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// renderFrame records and presents one frame with the first active scene's renderer.
// All scenes sharing that renderer are drawn within a single render pass.
func (e *engine) renderFrame(activeScenes []scene.Scene) {
	frameRenderer := activeScenes[0].Renderer()
	if frameRenderer == nil {
		return
	}
	for _, s := range activeScenes {
		if err := s.PrepareFrame(); err != nil {
			e.logger.Warn("failed to prepare scene", "scene", s.Name(), "error", err)
		}
	}
	if err := frameRenderer.BeginFrame(); err != nil {
		e.logger.Debug("frame skipped", "error", err)
		return
	}
	for _, s := range activeScenes {
		if err := s.DrawCalls(); err != nil {
			e.logger.Warn("failed to draw scene", "scene", s.Name(), "error", err)
		}
	}
	frameRenderer.EndFrame()
	frameRenderer.Present()
}

func (e *engine) applyResize(sz size) {
	for _, s := range e.Scenes() {
		if r := s.Renderer(); r != nil {
			r.Resize(sz.width, sz.height)
		}
		if c := s.Camera(); c != nil {
			c.SetViewport(sz.width, sz.height)
		}
	}
	e.logger.Debug("surface resized", "width", sz.width, "height", sz.height)
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// recoverPanic logs a panic from one of the engine goroutines and shuts the engine down instead of
// crashing the process.
func (e *engine) recoverPanic(loop string) {
	if r := recover(); r != nil {
		e.logger.Error("goroutine recovered from panic", "loop", loop, "panic", r)
		e.signalQuit()
	}
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if !running {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending value.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
