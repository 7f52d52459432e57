package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"skyvis/pkg/skyvis"
)

type detectFlags struct {
	camera     string
	method     string
	starsPath  string
	configPath string
	outPath    string
	debayer    bool

	sigma        float64
	fitSize      int
	presmoothing float64
	removeStars  bool
	quantile     float64
}

func detectCommand() *cobra.Command {
	flags := &detectFlags{}
	cmd := &cobra.Command{
		Use:   "detect [image.fits]",
		Short: "Detect catalog stars in an all-sky image and score visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.camera, "camera", "c", "", "Camera name (defaults to the INSTRUME header)")
	cmd.Flags().StringVarP(&flags.method, "method", "m", "llh", "Detection method: llh or filter")
	cmd.Flags().StringVarP(&flags.starsPath, "stars", "s", "", "CSV of predicted star positions (id,x,y,mag)")
	cmd.Flags().StringVar(&flags.configPath, "config", "cameras.yaml", "Camera store YAML file")
	cmd.Flags().StringVarP(&flags.outPath, "out", "o", "", "Write results CSV to this path (default: stdout)")
	cmd.Flags().BoolVar(&flags.debayer, "debayer", false, "Treat input as raw RGGB color data")

	cmd.Flags().Float64Var(&flags.sigma, "sigma", 0, "Override the method's sigma parameter")
	cmd.Flags().IntVar(&flags.fitSize, "fit-size", 0, "Override the patch half-window size")
	cmd.Flags().Float64Var(&flags.presmoothing, "presmoothing", 1.5, "Presmoothing sigma (llh only)")
	cmd.Flags().BoolVar(&flags.removeStars, "remove-detected", false, "Subtract fitted stars before fitting fainter ones (llh only)")
	cmd.Flags().Float64Var(&flags.quantile, "quantile", 100, "Patch percentile statistic (filter only)")
	_ = cmd.MarkFlagRequired("stars")

	return cmd
}

func runDetect(cmd *cobra.Command, imagePath string, flags *detectFlags) error {
	stars, err := readStarCandidates(flags.starsPath)
	if err != nil {
		return err
	}

	load := skyvis.LoadFitsImage
	if flags.debayer {
		load = skyvis.LoadFitsImageDebayered
	}
	img, err := load(imagePath, flags.camera)
	if err != nil {
		return err
	}
	defer img.Close()

	detector, err := buildDetector(flags)
	if err != nil {
		return err
	}

	calibration := 1.0
	if store, err := skyvis.LoadCameraStore(flags.configPath); err == nil {
		calibration = store.Calibration(img.Camera, detector.Name(), img.Time)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v, using identity calibration\n", err)
	}

	start := time.Now()
	table, err := detector.Detect(cmd.Context(), img, stars, calibration)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Detected %d stars in %.1fs (%s)\n",
		table.Len(), time.Since(start).Seconds(), detector.Name())

	out := cmd.OutOrStdout()
	if flags.outPath != "" {
		f, err := os.Create(flags.outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := table.WriteCSV(out); err != nil {
		return err
	}

	if field := skyvis.AnalyzeVisibilityField(table, stars, img.Width, img.Height, 0.5); field != nil {
		printVisibilityField(cmd, field)
	}
	return nil
}

func buildDetector(flags *detectFlags) (skyvis.StarDetector, error) {
	switch flags.method {
	case "llh":
		d := skyvis.NewLikelihoodDetector()
		if flags.sigma > 0 {
			d.Sigma = flags.sigma
		}
		if flags.fitSize > 0 {
			d.FitSize = flags.fitSize
		}
		d.Presmoothing = flags.presmoothing
		d.RemoveDetected = flags.removeStars
		return d, nil
	case "filter":
		d := skyvis.NewFilterDetector()
		if flags.sigma > 0 {
			d.Sigma = flags.sigma
		}
		if flags.fitSize > 0 {
			d.FitSize = flags.fitSize
		}
		d.Quantile = flags.quantile
		return d, nil
	default:
		return nil, fmt.Errorf("unknown method %q (want llh or filter)", flags.method)
	}
}

func printVisibilityField(cmd *cobra.Command, field *skyvis.VisibilityField) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Visibility Field (3x3) ===")
	for i, pos := range skyvis.ZoneOrder() {
		z := field.Zones[pos]
		fmt.Fprintf(w, "  %-8s vis=%.3f  detected=%.0f%%  n=%d\n",
			z.Label, z.MedianVisibility, z.DetectedFraction*100, z.StarCount)
		if (i+1)%3 == 0 && i < 8 {
			fmt.Fprintln(w, "  ---")
		}
	}
	if field.BestZone != "" {
		fmt.Fprintf(w, "\n  Best zone: %s, worst zone: %s\n", field.BestZone, field.WorstZone)
	}
	if !field.Reliable {
		fmt.Fprintln(w, "  [LOW STAR COUNT - UNRELIABLE]")
	}
	fmt.Fprintln(w, "==============================")
}
