package skyvis

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreWithEpochs(t *testing.T) *CameraStore {
	t.Helper()
	store := NewCameraStore()
	require.NoError(t, store.AddCamera("cta", &CameraEntry{
		Mapping:    "nonlin",
		Resolution: PixelDims{X: 1699, Y: 1699},
		Zenith:     FloatDims{X: 849.5, Y: 849.5},
		Radius:     750,
		MaxVal:     65535,
	}, false))

	epochs := []struct {
		t time.Time
		v float64
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0.8},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 0.9},
		{time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 1.1},
	}
	for _, e := range epochs {
		require.NoError(t, store.SetCalibration("cta", MethodLikelihood, e.t, e.v))
	}
	return store
}

func TestCalibrationLookup(t *testing.T) {
	t.Parallel()
	store := testStoreWithEpochs(t)

	tests := []struct {
		name   string
		camera string
		method string
		obs    time.Time
		want   float64
	}{
		{
			name:   "between epochs picks the earlier one",
			camera: "cta", method: MethodLikelihood,
			obs:  time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC),
			want: 0.9,
		},
		{
			name:   "after all epochs picks the latest",
			camera: "cta", method: MethodLikelihood,
			obs:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			want: 1.1,
		},
		{
			name:   "exact epoch match is included",
			camera: "cta", method: MethodLikelihood,
			obs:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want: 0.9,
		},
		{
			name:   "before the first epoch falls back to identity",
			camera: "cta", method: MethodLikelihood,
			obs:  time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			want: 1.0,
		},
		{
			name:   "unknown camera falls back to identity",
			camera: "nosuch", method: MethodLikelihood,
			obs:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			want: 1.0,
		},
		{
			name:   "unknown method falls back to identity",
			camera: "cta", method: MethodFilter,
			obs:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			want: 1.0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := store.Calibration(tt.camera, tt.method, tt.obs)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCalibrationDateOnlyEpochs(t *testing.T) {
	t.Parallel()

	store := NewCameraStore()
	require.NoError(t, store.AddCamera("iceact", &CameraEntry{}, false))
	store.Cameras["iceact"].Calibration = map[string]map[string]float64{
		MethodFilter: {
			"2026-02-10": 0.7,
			"2026-02-20": 0.75,
		},
	}

	got := store.Calibration("iceact", MethodFilter, time.Date(2026, 2, 15, 3, 0, 0, 0, time.UTC))
	assert.InDelta(t, 0.7, got, 1e-12)
}

func TestAddCameraDuplicate(t *testing.T) {
	t.Parallel()

	store := NewCameraStore()
	require.NoError(t, store.AddCamera("cta", &CameraEntry{Radius: 750}, false))

	err := store.AddCamera("cta", &CameraEntry{Radius: 800}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	entry, ok := store.Camera("cta")
	require.True(t, ok)
	assert.InDelta(t, 750.0, entry.Radius, 1e-12)

	require.NoError(t, store.AddCamera("cta", &CameraEntry{Radius: 800}, true))
	entry, _ = store.Camera("cta")
	assert.InDelta(t, 800.0, entry.Radius, 1e-12)
}

func TestCameraStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cameras.yaml")
	store := testStoreWithEpochs(t)
	require.NoError(t, store.SaveTo(path))

	loaded, err := LoadCameraStore(path)
	require.NoError(t, err)

	entry, ok := loaded.Camera("cta")
	require.True(t, ok)
	assert.Equal(t, "nonlin", entry.Mapping)
	assert.Equal(t, 1699, entry.Resolution.X)
	assert.InDelta(t, 750.0, entry.Radius, 1e-12)

	obs := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.1, loaded.Calibration("cta", MethodLikelihood, obs), 1e-12)
}

func TestLoadCameraStoreMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCameraStore(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
