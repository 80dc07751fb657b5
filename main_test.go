// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clapper/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Acquisition.Source = config.SourceSynthetic
	cfg.Strip.Drivers = nil
	cfg.Transport.HTTPAddress = "127.0.0.1:0"
	cfg.Transport.MetricsEnabled = false
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestAppRunsAndShutsDown(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Transport.MetricsEnabled = true
	cfg.Transport.WebSocketEnabled = true
	cfg.Strip.Drivers = []string{config.DriverWebSocket}
	cfg.Recording.Enabled = true
	cfg.Recording.File = filepath.Join(t.TempDir(), "run.wav")
	cfg.Spectrum.Enabled = true

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	require.NotZero(t, a.server.Port())
	assert.NotEmpty(t, a.runID)

	require.NoError(t, a.Run(ctx))

	resp, err := http.Get("http://" + a.server.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "clapper_batches_total")
	assert.Contains(t, string(body), "clapper_frames_total")
	assert.Contains(t, string(body), `clapper_band_energy{band="mid"}`)

	require.NoError(t, a.Close())
	assert.False(t, a.controller.State().On)

	info, err := os.Stat(cfg.Recording.File)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44), "header plus at least one burst")
}

func TestAppBindErrorCleansUp(t *testing.T) {
	first := syntheticConfig(t)
	first.Transport.MetricsEnabled = true
	a, err := newApp(context.Background(), first)
	require.NoError(t, err)
	defer a.Close()

	clash := syntheticConfig(t)
	clash.Transport.MetricsEnabled = true
	clash.Transport.HTTPAddress = a.server.Addr().String()
	_, err = newApp(context.Background(), clash)
	assert.ErrorContains(t, err, "failed to start HTTP server")
}

func TestNewSourceErrors(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Acquisition.Source = "tape"
	_, err := newSource(cfg)
	assert.Error(t, err)

	cfg.Acquisition.Source = config.SourceFile
	cfg.Acquisition.File = filepath.Join(t.TempDir(), "missing.wav")
	_, err = newSource(cfg)
	assert.ErrorContains(t, err, "failed to configure file source")
}

func TestNewDetector(t *testing.T) {
	cfg := syntheticConfig(t)
	det, closer, err := newDetector(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, det)
	assert.Nil(t, closer)

	cfg.Detector.Kind = config.DetectorClassifier
	cfg.Detector.Classifier.URL = "ws://127.0.0.1:1/infer"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err = newDetector(ctx, cfg)
	assert.Error(t, err, "nothing listens on port 1")
}

func TestNewSpectrum(t *testing.T) {
	cfg := syntheticConfig(t)
	spectrum, err := newSpectrum(cfg)
	require.NoError(t, err)
	assert.Nil(t, spectrum, "disabled by default")

	cfg.Spectrum.Enabled = true
	spectrum, err = newSpectrum(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1024, spectrum.Size(), "burst rounded up to a power of two")

	cfg.Spectrum.Window = "kaiser"
	_, err = newSpectrum(cfg)
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Recording.File = filepath.Join(t.TempDir(), "capture.wav")

	require.NoError(t, record(context.Background(), cfg, 600*time.Millisecond))

	info, err := os.Stat(cfg.Recording.File)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44))
}
