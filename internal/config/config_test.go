package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ROI != imaging.VehicleROI {
		t.Errorf("ROI: got %v, want %v", cfg.ROI, imaging.VehicleROI)
	}
	if cfg.BufferSize != 2 {
		t.Errorf("BufferSize: got %d, want 2", cfg.BufferSize)
	}
	if cfg.MaxKeypoints != 50 {
		t.Errorf("MaxKeypoints: got %d, want 50", cfg.MaxKeypoints)
	}
}

func TestSequence_Paths(t *testing.T) {
	s := Sequence{Dir: "data", Prefix: "000000", Ext: ".png", FirstIndex: 8, LastIndex: 10, FillWidth: 4}

	got := s.Paths()
	want := []string{
		filepath.Join("data", "0000000008.png"),
		filepath.Join("data", "0000000009.png"),
		filepath.Join("data", "0000000010.png"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d paths, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path %d: got %s, want %s", i, got[i], want[i])
		}
	}

	s.LastIndex = 7
	if p := s.Paths(); p != nil {
		t.Errorf("reversed range should give no paths, got %v", p)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.yaml")
	content := `
sequence:
  dir: /data/kitti
  last_index: 3
detector: fast
descriptor: BRIEF
matcher: MAT_BF
selector: sel_knn
limit_keypoints: true
max_keypoints: 25
roi:
  x: 10
  y: 20
  width: 30
  height: 40
params:
  harris:
    aperture_size: 5
    min_response: 90
  match:
    knn_ratio: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sequence.Dir != "/data/kitti" || cfg.Sequence.LastIndex != 3 {
		t.Errorf("sequence: got %+v", cfg.Sequence)
	}
	// unspecified fields keep their defaults
	if cfg.Sequence.Prefix != "000000" || cfg.Sequence.FillWidth != 4 {
		t.Errorf("sequence defaults lost: %+v", cfg.Sequence)
	}
	if cfg.Detector != features.DetectorFAST || cfg.Selector != features.SelectorKNN {
		t.Errorf("detector/selector: got %s/%s", cfg.Detector, cfg.Selector)
	}
	if !cfg.LimitKeypoints || cfg.MaxKeypoints != 25 {
		t.Errorf("limit: got %v/%d", cfg.LimitKeypoints, cfg.MaxKeypoints)
	}
	if cfg.ROI != (imaging.Rect{X: 10, Y: 20, Width: 30, Height: 40}) {
		t.Errorf("roi: got %v", cfg.ROI)
	}
	if cfg.Params.Harris.ApertureSize != 5 || cfg.Params.Harris.MinResponse != 90 {
		t.Errorf("harris: got %+v", cfg.Params.Harris)
	}
	if cfg.Params.Harris.K != 0.04 || cfg.Params.Harris.BlockSize != 2 {
		t.Errorf("harris defaults lost: %+v", cfg.Params.Harris)
	}
	if cfg.Params.Match.KNNRatio != 0.7 {
		t.Errorf("knn ratio: got %v", cfg.Params.Match.KNNRatio)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("detector: SURF\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load should fail for an unknown detector")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Detector != Default().Detector {
		t.Error("empty path should return defaults")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDetector, "harris")
	t.Setenv(EnvMatcher, "MAT_FLANN")
	t.Setenv(EnvImageDir, "/tmp/frames")
	t.Setenv(EnvWorkers, "4")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Detector != features.DetectorHarris {
		t.Errorf("Detector: got %s, want HARRIS", cfg.Detector)
	}
	if cfg.Matcher != features.MatcherFLANN {
		t.Errorf("Matcher: got %s, want MAT_FLANN", cfg.Matcher)
	}
	if cfg.Sequence.Dir != "/tmp/frames" {
		t.Errorf("Dir: got %s", cfg.Sequence.Dir)
	}
	if cfg.Params.Workers != 4 {
		t.Errorf("Workers: got %d, want 4", cfg.Params.Workers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want debug", cfg.LogLevel)
	}
	// untouched variables leave defaults alone
	if cfg.Descriptor != features.DescriptorBRIEF {
		t.Errorf("Descriptor: got %s, want BRIEF", cfg.Descriptor)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvDetector, "SURF"},
		{EnvDescriptor, "LATCH"},
		{EnvMatcher, "MAT_X"},
		{EnvSelector, "SEL_ALL"},
		{EnvWorkers, "many"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := Default().ApplyEnv()
			if err == nil {
				t.Fatalf("ApplyEnv should fail for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error should name the variable: %v", err)
			}
		})
	}
}

func TestBindFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)

	args := []string{
		"-detector", "ORB",
		"-descriptor", "orb",
		"-selector", "SEL_KNN",
		"-limit",
		"-max-keypoints", "10",
		"-last", "4",
		"-cross-check",
		"-visualize", "-out", "/tmp/out",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Detector != features.DetectorORB || cfg.Descriptor != features.DescriptorORB {
		t.Errorf("detector/descriptor: got %s/%s", cfg.Detector, cfg.Descriptor)
	}
	if cfg.Selector != features.SelectorKNN {
		t.Errorf("Selector: got %s", cfg.Selector)
	}
	if !cfg.LimitKeypoints || cfg.MaxKeypoints != 10 {
		t.Errorf("limit: got %v/%d", cfg.LimitKeypoints, cfg.MaxKeypoints)
	}
	if cfg.Sequence.LastIndex != 4 {
		t.Errorf("LastIndex: got %d", cfg.Sequence.LastIndex)
	}
	if !cfg.Params.Match.CrossCheck {
		t.Error("CrossCheck should be set")
	}
	if !cfg.Visualize || cfg.OutputDir != "/tmp/out" {
		t.Errorf("visualize: got %v %q", cfg.Visualize, cfg.OutputDir)
	}
}

func TestBindFlags_UnknownDetector(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	cfg.BindFlags(fs)

	if err := fs.Parse([]string{"-detector", "SURF"}); err == nil {
		t.Error("Parse should reject an unknown detector")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"reversed frames", func(c *Config) { c.Sequence.FirstIndex, c.Sequence.LastIndex = 5, 2 }},
		{"negative fill", func(c *Config) { c.Sequence.FillWidth = -1 }},
		{"tiny buffer", func(c *Config) { c.BufferSize = 1 }},
		{"zero limit", func(c *Config) { c.LimitKeypoints, c.MaxKeypoints = true, 0 }},
		{"empty roi", func(c *Config) { c.ROI = imaging.Rect{} }},
		{"visualize without dir", func(c *Config) { c.Visualize, c.OutputDir = true, "" }},
		{"akaze on shitomasi", func(c *Config) { c.Descriptor = features.DescriptorAKAZE }},
		{"orb on sift", func(c *Config) { c.Detector, c.Descriptor = features.DetectorSIFT, features.DescriptorORB }},
		{"bad aperture", func(c *Config) { c.Params.Harris.ApertureSize = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestValidate_ROIIgnoredWithoutFocus(t *testing.T) {
	cfg := Default()
	cfg.FocusOnVehicle = false
	cfg.ROI = imaging.Rect{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty roi without focus should be accepted: %v", err)
	}
}
