package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/panoview/config"
	"github.com/Carmen-Shannon/panoview/engine/datasource"
	"github.com/Carmen-Shannon/panoview/engine/decoder"
)

// globalOptions are the flags shared by every subcommand, resolved against the configuration file.
type globalOptions struct {
	configPath string
	logLevel   string
	apiBase    string
	geoJSON    string
	faceRoot   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	o := &globalOptions{}
	root := &cobra.Command{
		Use:           "panoview",
		Short:         "Street-level panorama viewer",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "TOML configuration file")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&o.apiBase, "api", "", "coverage API root")
	flags.StringVar(&o.geoJSON, "geojson", "", "read panoramas from a FeatureCollection file instead of the API")
	flags.StringVar(&o.faceRoot, "faces", "", "directory holding face images for --geojson")

	root.AddCommand(
		newViewCommand(o),
		newExportCommand(o),
		newNearbyCommand(o),
		newConfigCommand(o),
	)
	return root
}

// resolve loads the configuration and applies the flag overrides.
func (o *globalOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.apiBase != "" {
		cfg.Source.APIBase = o.apiBase
	}
	if o.geoJSON != "" {
		cfg.Source.GeoJSON = o.geoJSON
	}
	if o.faceRoot != "" {
		cfg.Source.FaceRoot = o.faceRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(o.logger)
	return nil
}

// dataSource opens the configured panorama source.
func (o *globalOptions) dataSource() (datasource.DataSource, error) {
	src := o.cfg.Source
	if src.GeoJSON != "" {
		return datasource.LoadGeoJSONSource(src.GeoJSON, src.FaceRoot, o.logger)
	}
	client := datasource.NewHTTPClient(src.APIBase,
		datasource.WithClientLogger(o.logger),
		datasource.WithHTTPClient(newHTTPClient(src.Timeout.Duration)),
	)
	return client, nil
}

// decoder builds the face decoder with video still extraction backed by a scratch directory.
func (o *globalOptions) decoder() decoder.Decoder {
	return decoder.NewDecoder(decoder.NewVideoFrameExtractor(filepath.Join(os.TempDir(), "panoview")))
}

func (o *globalOptions) preferredFormat() decoder.Format {
	return decoder.ParseFormat(o.cfg.Source.Format)
}

func checkCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinate %g,%g out of range", lat, lon)
	}
	return nil
}

func addCoordinateFlags(cmd *cobra.Command, lat, lon *float64) {
	cmd.Flags().Float64Var(lat, "lat", math.NaN(), "latitude in degrees")
	cmd.Flags().Float64Var(lon, "lon", math.NaN(), "longitude in degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}
