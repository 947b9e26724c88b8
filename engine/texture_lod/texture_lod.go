// Package texture_lod streams face textures at increasing resolution as the view changes and
// crossfades each face from its old texture to the new one.
package texture_lod

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/dispatch"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// FaceFetcher downloads the encoded bytes of one face.
type FaceFetcher interface {
	// FetchFace downloads a face.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - urlBase: the panorama's face source identifier
	//   - zoom: the resolution tier, 0 is the highest
	//   - face: the face to fetch
	//   - format: the preferred encoding, which the server may ignore
	//
	// Returns:
	//   - []byte: the response body
	//   - error: error if the request failed
	FetchFace(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format) ([]byte, error)
}

// ProgressFetcher is a FaceFetcher that can report how much of a face has arrived.
type ProgressFetcher interface {
	FaceFetcher

	// FetchFaceProgress is FetchFace with a download callback.
	//
	// Parameters:
	//   - ctx, urlBase, zoom, face, format: as for FetchFace
	//   - onProgress: receives the downloaded fraction in [0, 1], may be nil
	//
	// Returns:
	//   - []byte: the response body
	//   - error: error if the request failed
	FetchFaceProgress(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format, onProgress func(fraction float64)) ([]byte, error)
}

// progressStep is the smallest change in a face's download fraction that is reported.
const progressStep = 0.01

// request captures everything a completion needs to decide whether it is still wanted.
type request struct {
	face       panorama.Face
	zoom       int
	source     string
	generation uint64
	initial    bool
}

type managerImpl struct {
	mu *sync.Mutex

	fetcher  FaceFetcher
	decoder  decoder.Decoder
	executor dispatch.Executor
	logger   *slog.Logger
	ctx      context.Context

	startZoom       int
	narrowZoom      int
	wideZoom        int
	fovThreshold    float64
	blendDuration   time.Duration
	preferredFormat decoder.Format

	slots      [panorama.FaceCount]FaceTextureSlot
	source     string
	generation uint64
	fader      SceneFader

	fadeDuration    time.Duration
	suspendRotation bool

	onProgress func(progress float64)
	onUpdate   func(face panorama.Face)
}

// Manager owns the six face texture slots of the active panorama.
// It is safe for concurrent use: completions arrive on executor goroutines while the frame loop
// reads slots.
type Manager interface {
	// Activate resets every slot for a new panorama and requests all six faces at the start zoom.
	// The update callback fires for every reset slot before any request is submitted.
	//
	// Parameters:
	//   - pano: the panorama becoming active
	Activate(pano panorama.PanoramaRecord)

	// Refresh requests higher resolution for visible faces. The target tier is the narrow tier when
	// vFov is below the threshold and the wide tier otherwise. A face is requested only if its
	// displayed tier is coarser than the target and no request for it is in flight.
	//
	// Parameters:
	//   - visible: the faces at least partially on screen
	//   - vFov: the current vertical field of view in radians
	//
	// Returns:
	//   - int: the number of requests started
	Refresh(visible []panorama.Face, vFov float64) int

	// Tick advances every active crossfade and the scene fade.
	//
	// Parameters:
	//   - dt: elapsed time since the last tick
	Tick(dt time.Duration)

	// Slot returns a copy of a face's slot.
	//
	// Parameters:
	//   - face: the face to read
	//
	// Returns:
	//   - FaceTextureSlot: the slot state
	Slot(face panorama.Face) FaceTextureSlot

	// Slots returns a copy of all slots.
	//
	// Returns:
	//   - [panorama.FaceCount]FaceTextureSlot: the slot states in face order
	Slots() [panorama.FaceCount]FaceTextureSlot

	// Progress returns the mean of the per-face initial download fractions. A face counts fully
	// once its initial request has finished, successfully or not.
	//
	// Returns:
	//   - float64: progress in [0, 1]
	Progress() float64

	// Source returns the face source identifier of the active panorama.
	//
	// Returns:
	//   - string: the active URL base, empty before the first activation
	Source() string

	// TargetZoom returns the tier Refresh would request for a field of view.
	//
	// Parameters:
	//   - vFov: vertical field of view in radians
	//
	// Returns:
	//   - int: the target zoom
	TargetZoom(vFov float64) int

	// SceneFader returns the panorama-switch fader.
	//
	// Returns:
	//   - SceneFader: the fader
	SceneFader() SceneFader
}

var _ Manager = &managerImpl{}

// NewManager creates a Manager. A fetcher must be supplied with WithFetcher.
//
// Parameters:
//   - options: functional options for the manager
//
// Returns:
//   - Manager: the manager
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &managerImpl{
		mu:              &sync.Mutex{},
		decoder:         decoder.NewDecoder(nil),
		executor:        dispatch.NewGoExecutor(),
		logger:          slog.Default(),
		ctx:             context.Background(),
		startZoom:       5,
		narrowZoom:      0,
		wideZoom:        2,
		fovThreshold:    common.DegToRad(55),
		blendDuration:   150 * time.Millisecond,
		preferredFormat: decoder.FormatJPEG,
		fadeDuration:    time.Second,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.fader == nil {
		m.fader = NewSceneFader(m.fadeDuration, m.suspendRotation)
	}
	for i := range m.slots {
		m.slots[i].Zoom = NoZoom
	}
	return m
}

func (m *managerImpl) Activate(pano panorama.PanoramaRecord) {
	m.mu.Lock()
	m.generation++
	m.source = pano.URLBase()
	reqs := make([]request, 0, panorama.FaceCount)
	for i := range m.slots {
		m.slots[i] = FaceTextureSlot{Zoom: NoZoom, Refreshing: true, Version: m.slots[i].Version + 1}
		reqs = append(reqs, request{
			face:       panorama.Face(i),
			zoom:       m.startZoom,
			source:     m.source,
			generation: m.generation,
			initial:    true,
		})
	}
	m.mu.Unlock()

	m.logger.Debug("activating panorama textures", "source", pano.URLBase(), "zoom", m.startZoom)
	m.reportProgress()
	if m.onUpdate != nil {
		for _, f := range panorama.AllFaces() {
			m.onUpdate(f)
		}
	}
	for _, r := range reqs {
		m.submit(r)
	}
}

func (m *managerImpl) TargetZoom(vFov float64) int {
	if vFov < m.fovThreshold {
		return m.narrowZoom
	}
	return m.wideZoom
}

func (m *managerImpl) Refresh(visible []panorama.Face, vFov float64) int {
	target := m.TargetZoom(vFov)

	m.mu.Lock()
	if m.source == "" {
		m.mu.Unlock()
		return 0
	}
	var reqs []request
	for _, f := range visible {
		if f < 0 || int(f) >= panorama.FaceCount {
			continue
		}
		slot := &m.slots[f]
		if slot.Refreshing || slot.Zoom <= target {
			continue
		}
		slot.Refreshing = true
		reqs = append(reqs, request{face: f, zoom: target, source: m.source, generation: m.generation})
	}
	m.mu.Unlock()

	for _, r := range reqs {
		m.logger.Debug("upgrading face", "face", r.face, "zoom", r.zoom)
		m.submit(r)
	}
	return len(reqs)
}

// submit fetches and decodes off the caller's goroutine and applies the result on completion.
func (m *managerImpl) submit(r request) {
	m.executor.Submit(func() (any, error) {
		data, err := m.fetch(r)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch face %s at zoom %d: %w", r.face, r.zoom, err)
		}
		img, format, err := m.decoder.Decode(m.ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode face %s (%s): %w", r.face, format, err)
		}
		return common.NewTextureStagingData(img), nil
	}, func(result any, err error) {
		img, _ := result.(*common.TextureStagingData)
		m.complete(r, img, err)
	})
}

// fetch downloads the face of a request. Initial requests report partial downloads when the
// fetcher supports it.
func (m *managerImpl) fetch(r request) ([]byte, error) {
	if pf, ok := m.fetcher.(ProgressFetcher); ok && r.initial {
		return pf.FetchFaceProgress(m.ctx, r.source, r.zoom, r.face, m.preferredFormat, func(fraction float64) {
			m.downloaded(r, fraction)
		})
	}
	return m.fetcher.FetchFace(m.ctx, r.source, r.zoom, r.face, m.preferredFormat)
}

// downloaded records the partial download of an initial request.
func (m *managerImpl) downloaded(r request, fraction float64) {
	fraction = math.Max(0, math.Min(1, fraction))

	m.mu.Lock()
	if r.generation != m.generation || r.source != m.source {
		m.mu.Unlock()
		return
	}
	slot := &m.slots[r.face]
	if slot.settled || fraction <= slot.downloaded || (fraction < 1 && fraction-slot.downloaded < progressStep) {
		m.mu.Unlock()
		return
	}
	slot.downloaded = fraction
	m.mu.Unlock()

	m.reportProgress()
}

// complete applies a finished request. Results for a panorama that is no longer active are
// dropped without touching any slot.
func (m *managerImpl) complete(r request, img *common.TextureStagingData, err error) {
	m.mu.Lock()
	if r.generation != m.generation || r.source != m.source {
		m.mu.Unlock()
		m.logger.Debug("discarding stale face", "face", r.face, "source", r.source)
		return
	}

	slot := &m.slots[r.face]
	slot.Refreshing = false
	if r.initial {
		slot.settled = true
	}

	applied := false
	switch {
	case err != nil:
		m.logger.Debug("face request failed", "face", r.face, "zoom", r.zoom, "error", err)
	case img == nil:
		m.logger.Debug("face request returned no image", "face", r.face, "zoom", r.zoom)
	case r.zoom >= slot.Zoom:
		// Never replace a texture with one that is not strictly sharper.
	default:
		slot.apply(img, r.zoom, r.source)
		applied = true
	}
	m.mu.Unlock()

	if r.initial {
		m.reportProgress()
	}
	if applied && m.onUpdate != nil {
		m.onUpdate(r.face)
	}
}

func (m *managerImpl) Tick(dt time.Duration) {
	var changed []panorama.Face

	m.mu.Lock()
	for i := range m.slots {
		if m.slots[i].advance(dt, m.blendDuration) {
			changed = append(changed, panorama.Face(i))
		}
	}
	m.mu.Unlock()

	m.fader.Tick(dt)

	if m.onUpdate != nil {
		for _, f := range changed {
			m.onUpdate(f)
		}
	}
}

func (m *managerImpl) Slot(face panorama.Face) FaceTextureSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face < 0 || int(face) >= panorama.FaceCount {
		return FaceTextureSlot{Zoom: NoZoom}
	}
	return m.slots[face]
}

func (m *managerImpl) Slots() [panorama.FaceCount]FaceTextureSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots
}

func (m *managerImpl) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressLocked()
}

func (m *managerImpl) progressLocked() float64 {
	var sum float64
	for _, s := range m.slots {
		if s.settled {
			sum++
		} else {
			sum += s.downloaded
		}
	}
	return math.Min(1, sum/panorama.FaceCount)
}

func (m *managerImpl) reportProgress() {
	if m.onProgress == nil {
		return
	}
	m.onProgress(m.Progress())
}

func (m *managerImpl) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *managerImpl) SceneFader() SceneFader {
	return m.fader
}
