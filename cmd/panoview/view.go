package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine"
	"github.com/Carmen-Shannon/panoview/engine/camera"
	"github.com/Carmen-Shannon/panoview/engine/dispatch"
	"github.com/Carmen-Shannon/panoview/engine/event_stream"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/profiler"
	"github.com/Carmen-Shannon/panoview/engine/renderer"
	"github.com/Carmen-Shannon/panoview/engine/scene"
	"github.com/Carmen-Shannon/panoview/engine/texture_lod"
	"github.com/Carmen-Shannon/panoview/engine/viewer"
	"github.com/Carmen-Shannon/panoview/engine/window"
)

func newViewCommand(o *globalOptions) *cobra.Command {
	var (
		lat, lon  float64
		events    bool
		listen    string
		profiling bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the panorama closest to a coordinate in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkCoordinate(lat, lon); err != nil {
				return err
			}
			cfg := o.cfg
			if cmd.Flags().Changed("events") {
				cfg.Events.Enabled = events
			}
			if listen != "" {
				cfg.Events.Listen = listen
			}
			if cmd.Flags().Changed("profile") {
				cfg.Profiler.Enabled = profiling
			}
			o.cfg = cfg
			return runView(cmd.Context(), o, lat, lon)
		},
	}
	addCoordinateFlags(cmd, &lat, &lon)
	cmd.Flags().BoolVar(&events, "events", false, "serve the event stream")
	cmd.Flags().StringVar(&listen, "listen", "", "event stream listen address")
	cmd.Flags().BoolVar(&profiling, "profile", false, "log frame statistics")
	return cmd
}

// runView wires the window, renderer, scene and viewer together and blocks until the window closes.
func runView(ctx context.Context, o *globalOptions, lat, lon float64) error {
	cfg := o.cfg
	logger := o.logger
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := o.dataSource()
	if err != nil {
		return err
	}

	w, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithMinSize(320, 240),
	)
	if err != nil {
		return fmt.Errorf("failed to open window: %w", err)
	}

	presentMode := renderer.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, w,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Window.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Window.SoftwareRenderer),
	)
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	defer r.Release()

	cam := camera.NewCamera(
		camera.WithViewport(w.Width(), w.Height()),
		camera.WithController(camera.NewCameraController(
			camera.WithFovBounds(float32(common.DegToRad(cfg.Camera.MinFov)), float32(common.DegToRad(cfg.Camera.MaxFov))),
			camera.WithZoomLevel(float32(cfg.Camera.ZoomLevel)),
			camera.WithZoomSpeed(float32(cfg.Camera.ZoomSpeed)),
			camera.WithMouseSensitivity(float32(cfg.Camera.MouseSensitivity)),
			camera.WithPitchBounds(-common.DegToRad(cfg.Camera.MaxPitch), common.DegToRad(cfg.Camera.MaxPitch)),
		)),
	)

	marker := host.NewMarker()
	sc := scene.NewScene("panorama", cam, r,
		scene.WithActive(true),
		scene.WithMarker(marker),
		scene.WithLogger(logger),
	)
	defer sc.Release()

	pool := dispatch.NewPoolExecutor(cfg.Textures.Workers, cfg.Textures.QueueSize)
	defer pool.Stop()

	var stream event_stream.Server
	tex := cfg.Textures
	nav := cfg.Navigation
	v := viewer.NewViewer(sc, cam, src,
		viewer.WithMarker(marker),
		viewer.WithLogger(logger),
		viewer.WithExecutor(pool),
		viewer.WithKeyZoomStep(float32(cfg.Camera.KeyZoomStep)),
		viewer.WithTextureOptions(
			texture_lod.WithDecoder(o.decoder()),
			texture_lod.WithPreferredFormat(o.preferredFormat()),
			texture_lod.WithStartZoom(tex.StartZoom),
			texture_lod.WithNarrowZoom(tex.NarrowZoom),
			texture_lod.WithWideZoom(tex.WideZoom),
			texture_lod.WithFovThreshold(common.DegToRad(tex.FovThreshold)),
			texture_lod.WithBlendDuration(tex.BlendDuration.Duration),
			texture_lod.WithSceneFadeDuration(tex.SceneFadeDuration.Duration, tex.SuspendRotation),
		),
		viewer.WithSelectorOptions(
			navigation.WithMaxDistance(nav.MaxDistance),
			navigation.WithCameraHeight(nav.CameraHeight),
			navigation.WithNearbyLimit(nav.NearbyLimit),
			navigation.WithHoverRate(nav.HoverRate),
			navigation.WithHeadingRelative(nav.HeadingRelative),
		),
		viewer.WithProgressCallback(func(progress float64) {
			if stream != nil {
				stream.PublishProgress(progress)
			}
		}),
	)
	defer v.Close()

	if cfg.Events.Enabled {
		opts := []event_stream.ServerOption{event_stream.WithLogger(logger)}
		if cfg.Events.AllowOpen {
			opts = append(opts, event_stream.WithOpenFunc(v.Open))
		}
		stream = event_stream.NewServer(v, opts...)
		go func() {
			if err := stream.ListenAndServe(ctx, cfg.Events.Listen); err != nil {
				logger.Error("event stream stopped", "error", err)
			}
		}()
	}

	v.OnMoved(func(rec panorama.PanoramaRecord) {
		w.SetTitle(windowTitle(cfg.Window.Title, rec))
		if stream != nil {
			stream.PublishMoved(rec)
		}
	})
	viewer.BindWindow(v, w)

	engineOptions := []engine.EngineBuilderOption{
		engine.WithWindow(w),
		engine.WithLogger(logger),
		engine.WithTickRate(float64(cfg.Window.TickRate)),
		engine.WithRenderFrameLimit(float64(cfg.Window.FrameLimit)),
		engine.WithScene(0, sc),
	}
	if cfg.Profiler.Enabled {
		engineOptions = append(engineOptions, engine.WithProfiler(profiler.NewProfiler(
			profiler.WithLogger(logger),
			profiler.WithInterval(cfg.Profiler.Interval.Duration),
			profiler.WithAttrs(func() []slog.Attr { return viewAttrs(v) }),
		)), engine.WithProfiling(true))
	}
	eng := engine.NewEngine(engineOptions...)

	eng.SetTickCallback(func(deltaTime float32) {
		v.Tick(time.Duration(float64(deltaTime) * float64(time.Second)))
	})

	logger.Info("opening panorama", "lat", lat, "lon", lon)
	v.Go(func(ctx context.Context) error {
		return v.Open(ctx, lat, lon)
	})

	eng.Run()
	cancel()
	return nil
}

// viewAttrs reports the texture tier of every face and the load progress.
func viewAttrs(v viewer.Viewer) []slog.Attr {
	zooms := v.FaceZooms()
	attrs := make([]slog.Attr, 0, len(zooms)+1)
	for i, z := range zooms {
		attrs = append(attrs, slog.Int("zoom_"+panorama.Face(i).String(), z))
	}
	return append(attrs, slog.Float64("progress", math.Round(v.Progress()*100)/100))
}

func windowTitle(base string, rec panorama.PanoramaRecord) string {
	title := fmt.Sprintf("%s - %.6f, %.6f", base, rec.Lat, rec.Lon)
	if rec.Timestamp > 0 {
		title += " - " + rec.Time().UTC().Format("2006-01-02")
	}
	return title
}
