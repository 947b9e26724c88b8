// Package config holds the file configuration of the panoview executable.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a string such as "150ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root of the configuration file.
type Config struct {
	Window     Window     `toml:"window"`
	Source     Source     `toml:"source"`
	Camera     Camera     `toml:"camera"`
	Textures   Textures   `toml:"textures"`
	Navigation Navigation `toml:"navigation"`
	Events     Events     `toml:"events"`
	Log        Log        `toml:"log"`
	Profiler   Profiler   `toml:"profiler"`
}

// Window configures the native window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	// FrameLimit caps rendered frames per second, 0 for uncapped.
	FrameLimit int `toml:"frame_limit"`
	// TickRate is the logic update rate in ticks per second.
	TickRate int `toml:"tick_rate"`
	VSync    bool `toml:"vsync"`
	// MSAA is the sample count, 1 or 4.
	MSAA int `toml:"msaa"`
	// SoftwareRenderer selects the CPU fallback adapter.
	SoftwareRenderer bool `toml:"software_renderer"`
}

// Source selects where panoramas come from. When GeoJSON is set it takes precedence over APIBase.
type Source struct {
	APIBase string   `toml:"api_base"`
	Timeout Duration `toml:"timeout"`
	// GeoJSON is a FeatureCollection file written by `panoview nearby`.
	GeoJSON string `toml:"geojson"`
	// FaceRoot is the directory holding face images for a GeoJSON source.
	FaceRoot string `toml:"face_root"`
	// Format is the preferred face encoding: jpeg, png, webp, heic or hevc.
	Format string `toml:"format"`
}

// Camera configures the view.
type Camera struct {
	// MinFov and MaxFov are the vertical fields of view in degrees at zoom levels 100 and 0.
	MinFov    float64 `toml:"min_fov"`
	MaxFov    float64 `toml:"max_fov"`
	ZoomLevel float64 `toml:"zoom_level"`
	ZoomSpeed float64 `toml:"zoom_speed"`
	// KeyZoomStep is the zoom input of one key press, in scroll wheel units.
	KeyZoomStep      float64 `toml:"key_zoom_step"`
	MouseSensitivity float64 `toml:"mouse_sensitivity"`
	// MaxPitch bounds the elevation in degrees on both sides of the horizon.
	MaxPitch float64 `toml:"max_pitch"`
}

// Textures configures the face resolution tiers and transitions.
type Textures struct {
	StartZoom  int `toml:"start_zoom"`
	NarrowZoom int `toml:"narrow_zoom"`
	WideZoom   int `toml:"wide_zoom"`
	// FovThreshold is the vertical field of view in degrees below which NarrowZoom is used.
	FovThreshold      float64  `toml:"fov_threshold"`
	BlendDuration     Duration `toml:"blend_duration"`
	SceneFadeDuration Duration `toml:"scene_fade_duration"`
	SuspendRotation   bool     `toml:"suspend_rotation"`
	Workers           int      `toml:"workers"`
	QueueSize         int      `toml:"queue_size"`
}

// Navigation configures the navigation targets.
type Navigation struct {
	MaxDistance     float64 `toml:"max_distance"`
	CameraHeight    float64 `toml:"camera_height"`
	NearbyLimit     int     `toml:"nearby_limit"`
	HoverRate       float64 `toml:"hover_rate"`
	HeadingRelative bool    `toml:"heading_relative"`
}

// Events configures the event stream server.
type Events struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
	// AllowOpen enables POST /open.
	AllowOpen bool `toml:"allow_open"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Profiler configures periodic frame statistics.
type Profiler struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: Window{
			Title:      "panoview",
			Width:      1280,
			Height:     720,
			FrameLimit: 60,
			TickRate:   60,
			VSync:      true,
			MSAA:       4,
		},
		Source: Source{
			APIBase: "http://127.0.0.1:5000",
			Timeout: Duration{30 * time.Second},
			Format:  "jpeg",
		},
		Camera: Camera{
			MinFov:      10,
			MaxFov:      70,
			ZoomLevel:   10,
			ZoomSpeed:   5,
			KeyZoomStep:      1,
			MouseSensitivity: 1,
			MaxPitch:         89,
		},
		Textures: Textures{
			StartZoom:         5,
			NarrowZoom:        0,
			WideZoom:          2,
			FovThreshold:      55,
			BlendDuration:     Duration{150 * time.Millisecond},
			SceneFadeDuration: Duration{time.Second},
			SuspendRotation:   true,
			Workers:           6,
			QueueSize:         64,
		},
		Navigation: Navigation{
			MaxDistance:  100,
			CameraHeight: 2.4,
			NearbyLimit:  50,
			HoverRate:    60,
		},
		Events: Events{
			Listen: "127.0.0.1:8765",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Profiler: Profiler{
			Interval: Duration{time.Second},
		},
	}
}

// Parse decodes TOML over the defaults, so a file only needs the keys it changes.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged configuration
//   - error: a decode error or ErrInvalid
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("failed to parse configuration at %d:%d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a configuration file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	return Parse(data)
}

// Write encodes the configuration as TOML.
func (c Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// Validate checks ranges that would otherwise be silently ignored by the components.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Window.FrameLimit >= 0, "window.frame_limit %d", c.Window.FrameLimit)
	check(c.Window.TickRate > 0, "window.tick_rate %d", c.Window.TickRate)
	check(c.Window.MSAA == 1 || c.Window.MSAA == 4, "window.msaa %d", c.Window.MSAA)
	check(c.Source.APIBase != "" || c.Source.GeoJSON != "", "source needs api_base or geojson")
	check(c.Camera.MinFov > 0 && c.Camera.MaxFov >= c.Camera.MinFov && c.Camera.MaxFov < 180,
		"camera fov range [%g, %g]", c.Camera.MinFov, c.Camera.MaxFov)
	check(c.Camera.ZoomLevel >= 0 && c.Camera.ZoomLevel <= 100, "camera.zoom_level %g", c.Camera.ZoomLevel)
	check(c.Camera.MaxPitch > 0 && c.Camera.MaxPitch < 90, "camera.max_pitch %g", c.Camera.MaxPitch)
	for name, z := range map[string]int{
		"start_zoom":  c.Textures.StartZoom,
		"narrow_zoom": c.Textures.NarrowZoom,
		"wide_zoom":   c.Textures.WideZoom,
	} {
		check(z >= 0, "textures.%s %d", name, z)
	}
	check(c.Textures.Workers > 0, "textures.workers %d", c.Textures.Workers)
	check(c.Navigation.MaxDistance > 0, "navigation.max_distance %g", c.Navigation.MaxDistance)
	check(!c.Events.Enabled || c.Events.Listen != "", "events.listen is empty")
	_, err := ParseLevel(c.Log.Level)
	check(err == nil, "log.level %q", c.Log.Level)
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format %q", c.Log.Format)

	return errors.Join(errs...)
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToUpper(s)))
	return level, err
}

// NewLogger builds the slog logger described by the Log section.
//
// Parameters:
//   - w: the log destination
//
// Returns:
//   - *slog.Logger: the logger
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
