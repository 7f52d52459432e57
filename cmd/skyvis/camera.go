package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skyvis/pkg/skyvis"
)

func cameraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camera",
		Short: "Manage camera definitions and geometry",
	}
	cmd.AddCommand(cameraAddCommand())
	cmd.AddCommand(cameraFitCommand())
	return cmd
}

type cameraAddFlags struct {
	configPath string
	force      bool

	lat, lon, height float64
	mapping          string
	resX, resY       int
	zenithX, zenithY float64
	radius           float64
	azOffset         float64
	maxVal           int
}

func cameraAddCommand() *cobra.Command {
	flags := &cameraAddFlags{}
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Register a camera in the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCameraAdd(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "cameras.yaml", "Camera store YAML file")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing entry")
	cmd.Flags().Float64Var(&flags.lat, "lat", 0, "Site latitude in degrees")
	cmd.Flags().Float64Var(&flags.lon, "lon", 0, "Site longitude in degrees")
	cmd.Flags().Float64Var(&flags.height, "height", 0, "Site elevation in meters")
	cmd.Flags().StringVar(&flags.mapping, "mapping", "nonlin", "Lens mapping function name")
	cmd.Flags().IntVar(&flags.resX, "res-x", 0, "Sensor width in pixels")
	cmd.Flags().IntVar(&flags.resY, "res-y", 0, "Sensor height in pixels")
	cmd.Flags().Float64Var(&flags.zenithX, "zenith-x", 0, "Zenith pixel column")
	cmd.Flags().Float64Var(&flags.zenithY, "zenith-y", 0, "Zenith pixel row")
	cmd.Flags().Float64Var(&flags.radius, "radius", 0, "Horizon radius in pixels")
	cmd.Flags().Float64Var(&flags.azOffset, "az-offset", 0, "Azimuth offset in degrees")
	cmd.Flags().IntVar(&flags.maxVal, "max-val", 65535, "Saturation value of the sensor")

	return cmd
}

func runCameraAdd(cmd *cobra.Command, name string, flags *cameraAddFlags) error {
	store, err := skyvis.LoadCameraStore(flags.configPath)
	if err != nil {
		store = skyvis.NewCameraStore()
	}

	entry := &skyvis.CameraEntry{
		Location:   skyvis.GeoLocation{Lat: flags.lat, Lon: flags.lon, Height: flags.height},
		Mapping:    flags.mapping,
		Resolution: skyvis.PixelDims{X: flags.resX, Y: flags.resY},
		Zenith:     skyvis.FloatDims{X: flags.zenithX, Y: flags.zenithY},
		Radius:     flags.radius,
		AzOffset:   flags.azOffset,
		MaxVal:     flags.maxVal,
	}
	if err := store.AddCamera(name, entry, flags.force); err != nil {
		return err
	}
	if err := store.SaveTo(flags.configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Camera %q saved to %s\n", name, flags.configPath)
	return nil
}

type cameraFitFlags struct {
	configPath string
	camera     string
	starsPath  string
	maxMag     float64
	initSigma  float64
	stepSize   float64
	write      bool
}

func cameraFitCommand() *cobra.Command {
	flags := &cameraFitFlags{}
	cmd := &cobra.Command{
		Use:   "fit [image.fits]",
		Short: "Fit zenith position, radius and azimuth offset from a clear-night image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCameraFit(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "cameras.yaml", "Camera store YAML file")
	cmd.Flags().StringVarP(&flags.camera, "camera", "c", "", "Camera name (defaults to the INSTRUME header)")
	cmd.Flags().StringVarP(&flags.starsPath, "stars", "s", "", "CSV of horizontal star coordinates (id,az,alt,mag in degrees)")
	cmd.Flags().Float64Var(&flags.maxMag, "max-mag", 3.0, "Use only stars brighter than this magnitude")
	cmd.Flags().Float64Var(&flags.initSigma, "init-sigma", 10.0, "Starting blur sigma for the anneal schedule")
	cmd.Flags().Float64Var(&flags.stepSize, "stepsize", 1.2, "Sigma divisor per refinement round (must be > 1)")
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "Write the fitted geometry back to the store")
	_ = cmd.MarkFlagRequired("stars")

	return cmd
}

func runCameraFit(cmd *cobra.Command, imagePath string, flags *cameraFitFlags) error {
	stars, err := readHorizontalStars(flags.starsPath)
	if err != nil {
		return err
	}

	img, err := skyvis.LoadFitsImage(imagePath, flags.camera)
	if err != nil {
		return err
	}
	defer img.Close()

	opts := skyvis.NewCameraFitOptions()
	opts.MaxMag = flags.maxMag
	opts.InitSigma = flags.initSigma
	opts.StepSize = flags.stepSize

	result, err := skyvis.FitCameraGeometry(cmd.Context(), img, stars, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fitted geometry for %q after %d rounds:\n", img.Camera, result.Rounds)
	fmt.Fprintf(out, "  zenith row: %.2f\n", result.ZenithRow)
	fmt.Fprintf(out, "  zenith col: %.2f\n", result.ZenithCol)
	fmt.Fprintf(out, "  radius:     %.2f px\n", result.Radius)
	fmt.Fprintf(out, "  az offset:  %.2f deg\n", result.AzOffset)

	if !flags.write {
		return nil
	}
	store, err := skyvis.LoadCameraStore(flags.configPath)
	if err != nil {
		return err
	}
	entry, ok := store.Camera(img.Camera)
	if !ok {
		return fmt.Errorf("camera %q not in store; run camera add first", img.Camera)
	}
	entry.Zenith = skyvis.FloatDims{X: result.ZenithCol, Y: result.ZenithRow}
	entry.Radius = result.Radius
	entry.AzOffset = result.AzOffset
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Geometry written to %s\n", flags.configPath)
	return nil
}
