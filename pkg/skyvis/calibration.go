package skyvis

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// calibrationTimeLayouts are accepted for the epoch keys in the camera store.
var calibrationTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// GeoLocation is a camera site on earth.
type GeoLocation struct {
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
	Height float64 `yaml:"height"`
}

// PixelDims is an integer x/y pair, used for sensor resolution.
type PixelDims struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// FloatDims is a float x/y pair, used for physical sensor size and the
// zenith pixel position.
type FloatDims struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// CameraEntry is everything the store knows about one camera: its site and
// optics geometry plus the per-method calibration epochs.
type CameraEntry struct {
	Location   GeoLocation `yaml:"location"`
	Mapping    string      `yaml:"mapping"`
	Resolution PixelDims   `yaml:"resolution"`
	Size       FloatDims   `yaml:"size"`
	Zenith     FloatDims   `yaml:"zenith"`
	Radius     float64     `yaml:"radius"`
	AzOffset   float64     `yaml:"az_offset"`
	Timestamps []string    `yaml:"timestamps,omitempty"`
	MaxVal     int         `yaml:"max_val"`

	// Calibration maps a detection-method name to its epochs: timestamp ->
	// positive scalar. The scalar multiplies raw visibility values.
	Calibration map[string]map[string]float64 `yaml:"calibration,omitempty"`
}

// CameraStore is the camera configuration resource, loaded once per process
// and passed by reference wherever calibration values are needed. The
// underlying file is a human-editable YAML mapping of camera name to entry.
type CameraStore struct {
	Cameras map[string]*CameraEntry

	path   string
	logger *slog.Logger
}

// NewCameraStore creates an empty in-memory store.
func NewCameraStore() *CameraStore {
	return &CameraStore{
		Cameras: make(map[string]*CameraEntry),
		logger:  slog.Default().With("component", "camerastore"),
	}
}

// LoadCameraStore reads the camera YAML resource from disk. The store
// remembers the path so Save can write back to the same file.
func LoadCameraStore(path string) (*CameraStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading camera store: %w", err)
	}
	store := NewCameraStore()
	store.path = path
	if err := yaml.Unmarshal(raw, &store.Cameras); err != nil {
		return nil, fmt.Errorf("parsing camera store %s: %w", path, err)
	}
	return store, nil
}

// Save writes the store back to the file it was loaded from.
func (s *CameraStore) Save() error {
	if s.path == "" {
		return fmt.Errorf("camera store has no backing file")
	}
	return s.SaveTo(s.path)
}

// SaveTo writes the store to the given path.
func (s *CameraStore) SaveTo(path string) error {
	raw, err := yaml.Marshal(s.Cameras)
	if err != nil {
		return fmt.Errorf("encoding camera store: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing camera store: %w", err)
	}
	s.path = path
	return nil
}

// Camera returns the entry for the given camera name.
func (s *CameraStore) Camera(name string) (*CameraEntry, bool) {
	e, ok := s.Cameras[name]
	return e, ok
}

// AddCamera registers a new camera. A duplicate name is a naming conflict
// unless force is set, in which case the entry is overwritten.
func (s *CameraStore) AddCamera(name string, entry *CameraEntry, force bool) error {
	if _, exists := s.Cameras[name]; exists && !force {
		return fmt.Errorf("camera %q already exists; use force to overwrite", name)
	}
	s.Cameras[name] = entry
	return nil
}

// SetCalibration records a calibration scalar for a camera and method at the
// given epoch.
func (s *CameraStore) SetCalibration(camera, method string, epoch time.Time, value float64) error {
	entry, ok := s.Cameras[camera]
	if !ok {
		return fmt.Errorf("unknown camera %q", camera)
	}
	if entry.Calibration == nil {
		entry.Calibration = make(map[string]map[string]float64)
	}
	if entry.Calibration[method] == nil {
		entry.Calibration[method] = make(map[string]float64)
	}
	entry.Calibration[method][epoch.UTC().Format(time.RFC3339)] = value
	return nil
}

// Calibration returns the calibration scalar for a camera and detection
// method at an observation time: the entry with the greatest epoch not after
// the observation. When the camera or method is unknown, or no epoch
// qualifies, it warns and returns the identity value 1.0 so uncalibrated raw
// visibility passes through unchanged.
func (s *CameraStore) Calibration(camera, method string, obsTime time.Time) float64 {
	entry, ok := s.Cameras[camera]
	if !ok {
		s.warnNoCalibration(camera, method, obsTime, "unknown camera")
		return 1.0
	}
	epochs, ok := entry.Calibration[method]
	if !ok || len(epochs) == 0 {
		s.warnNoCalibration(camera, method, obsTime, "no entries for method")
		return 1.0
	}

	var bestTime time.Time
	bestValue := 1.0
	found := false
	for key, value := range epochs {
		epoch, err := parseCalibrationTime(key)
		if err != nil {
			s.logger.Warn("skipping unparsable calibration epoch",
				"camera", camera, "method", method, "epoch", key)
			continue
		}
		if epoch.After(obsTime) {
			continue
		}
		if !found || epoch.After(bestTime) {
			bestTime = epoch
			bestValue = value
			found = true
		}
	}
	if !found {
		s.warnNoCalibration(camera, method, obsTime, "no epoch at or before observation")
		return 1.0
	}
	return bestValue
}

func (s *CameraStore) warnNoCalibration(camera, method string, obsTime time.Time, reason string) {
	s.logger.Warn("no calibration setting found, using identity",
		"camera", camera, "method", method, "time", obsTime, "reason", reason)
}

func parseCalibrationTime(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range calibrationTimeLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
