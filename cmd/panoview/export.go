package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/panoview/engine/export"
)

func newExportCommand(o *globalOptions) *cobra.Command {
	var (
		lat, lon float64
		zoom     int
		height   int
		quality  int
		encoding string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Stitch the side faces of the panorama closest to a coordinate into one image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkCoordinate(lat, lon); err != nil {
				return err
			}
			enc, err := export.ParseEncoding(encoding)
			if err != nil {
				return err
			}
			src, err := o.dataSource()
			if err != nil {
				return err
			}
			rec, err := src.FetchClosestPanorama(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("%s_%s_z%d.%s", rec.ID, rec.BuildID, zoom, enc.Extension())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			stitcher := export.NewStitcher(src, o.decoder(),
				export.WithZoom(zoom),
				export.WithFetchFormat(o.preferredFormat()),
				export.WithEncoding(enc),
				export.WithQuality(quality),
				export.WithHeight(height),
				export.WithLogger(o.logger),
			)
			if err := stitcher.Export(cmd.Context(), rec, f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			o.logger.Info("panorama exported", "panorama", rec.Key(), "file", output)
			return f.Close()
		},
	}
	addCoordinateFlags(cmd, &lat, &lon)
	cmd.Flags().IntVar(&zoom, "zoom", 0, "resolution tier, 0 is the highest")
	cmd.Flags().IntVar(&height, "height", 0, "output height in pixels, 0 keeps the face height")
	cmd.Flags().IntVar(&quality, "quality", 90, "JPEG quality")
	cmd.Flags().StringVar(&encoding, "format", "jpeg", "output encoding: jpeg, png or webp")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, named after the panorama by default")
	return cmd
}
