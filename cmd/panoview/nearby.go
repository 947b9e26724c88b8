package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/panoview/engine/datasource"
)

func newNearbyCommand(o *globalOptions) *cobra.Command {
	var (
		lat, lon float64
		radius   float64
		limit    int
		output   string
	)
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Write the panoramas around a coordinate as GeoJSON",
		Long: "Writes a FeatureCollection of the panoramas within a radius of a coordinate, nearest first.\n" +
			"The output can be served back to the viewer with --geojson.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkCoordinate(lat, lon); err != nil {
				return err
			}
			src, err := o.dataSource()
			if err != nil {
				return err
			}
			recs, err := src.FetchNearbyPanoramas(cmd.Context(), lat, lon, radius, limit)
			if err != nil {
				return err
			}
			data, err := datasource.ExportGeoJSON(recs)
			if err != nil {
				return err
			}
			o.logger.Info("nearby panoramas", "lat", lat, "lon", lon, "count", len(recs))

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
			_, err = fmt.Fprintln(w)
			return err
		},
	}
	addCoordinateFlags(cmd, &lat, &lon)
	cmd.Flags().Float64Var(&radius, "radius", datasource.MaxRadius, "search radius in meters")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of panoramas, 0 for all")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
