// Package config holds the settings of a tracking run.
//
// Settings are resolved in order: built-in defaults, an optional YAML file,
// FEATURE_TRACK_* environment variables, then command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/logger"
)

// Environment variables read by ApplyEnv.
const (
	EnvImageDir   = "FEATURE_TRACK_IMAGE_DIR"
	EnvDetector   = "FEATURE_TRACK_DETECTOR"
	EnvDescriptor = "FEATURE_TRACK_DESCRIPTOR"
	EnvMatcher    = "FEATURE_TRACK_MATCHER"
	EnvSelector   = "FEATURE_TRACK_SELECTOR"
	EnvOutputDir  = "FEATURE_TRACK_OUTPUT_DIR"
	EnvWorkers    = "FEATURE_TRACK_WORKERS"

	// EnvLogLevel is shared with the MCP server binary.
	EnvLogLevel = logger.LevelEnv
)

// Sequence names the frames of an image sequence on disk. Frame i is
// Dir/Prefix + i zero-padded to FillWidth digits + Ext.
type Sequence struct {
	Dir        string `yaml:"dir"`
	Prefix     string `yaml:"prefix"`
	Ext        string `yaml:"ext"`
	FirstIndex int    `yaml:"first_index"`
	LastIndex  int    `yaml:"last_index"`
	FillWidth  int    `yaml:"fill_width"`
}

// Paths lists the frame files in order.
func (s Sequence) Paths() []string {
	if s.LastIndex < s.FirstIndex {
		return nil
	}
	paths := make([]string, 0, s.LastIndex-s.FirstIndex+1)
	for i := s.FirstIndex; i <= s.LastIndex; i++ {
		name := fmt.Sprintf("%s%0*d%s", s.Prefix, s.FillWidth, i, s.Ext)
		paths = append(paths, filepath.Join(s.Dir, name))
	}
	return paths
}

// Config is the full configuration of a tracking run.
type Config struct {
	Sequence Sequence `yaml:"sequence"`

	Detector   features.DetectorType   `yaml:"detector"`
	Descriptor features.DescriptorType `yaml:"descriptor"`
	Matcher    features.MatcherType    `yaml:"matcher"`
	Selector   features.SelectorType   `yaml:"selector"`

	// FocusOnVehicle keeps only keypoints inside ROI.
	FocusOnVehicle bool         `yaml:"focus_on_vehicle"`
	ROI            imaging.Rect `yaml:"roi"`

	// LimitKeypoints keeps the MaxKeypoints strongest keypoints per frame.
	LimitKeypoints bool `yaml:"limit_keypoints"`
	MaxKeypoints   int  `yaml:"max_keypoints"`

	BufferSize int `yaml:"buffer_size"`

	Params features.Params `yaml:"params"`

	// Visualize writes keypoint and match renderings to OutputDir.
	Visualize bool   `yaml:"visualize"`
	OutputDir string `yaml:"output_dir"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the settings of the mid-term project: the first ten KITTI
// frames, Shi-Tomasi keypoints with BRIEF descriptors and brute-force
// nearest neighbor matching.
func Default() *Config {
	return &Config{
		Sequence: Sequence{
			Dir:        filepath.Join("images", "KITTI", "2011_09_26", "image_00", "data"),
			Prefix:     "000000",
			Ext:        ".png",
			FirstIndex: 0,
			LastIndex:  9,
			FillWidth:  4,
		},
		Detector:       features.DetectorShiTomasi,
		Descriptor:     features.DescriptorBRIEF,
		Matcher:        features.MatcherBruteForce,
		Selector:       features.SelectorNN,
		FocusOnVehicle: true,
		ROI:            imaging.VehicleROI,
		LimitKeypoints: false,
		MaxKeypoints:   50,
		BufferSize:     2,
		Params:         features.DefaultParams(),
		LogLevel:       "info",
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FEATURE_TRACK_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvImageDir); v != "" {
		c.Sequence.Dir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvDetector); v != "" {
		if err := c.Detector.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvDetector, err)
		}
	}
	if v := os.Getenv(EnvDescriptor); v != "" {
		if err := c.Descriptor.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvDescriptor, err)
		}
	}
	if v := os.Getenv(EnvMatcher); v != "" {
		if err := c.Matcher.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvMatcher, err)
		}
	}
	if v := os.Getenv(EnvSelector); v != "" {
		if err := c.Selector.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvSelector, err)
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Params.Workers = n
	}
	return nil
}

// BindFlags registers command line flags that write into c. Call it after
// Load and ApplyEnv so the flag defaults show the effective values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Sequence.Dir, "images", c.Sequence.Dir, "directory holding the image sequence")
	fs.IntVar(&c.Sequence.FirstIndex, "first", c.Sequence.FirstIndex, "index of the first frame")
	fs.IntVar(&c.Sequence.LastIndex, "last", c.Sequence.LastIndex, "index of the last frame")

	fs.TextVar(&c.Detector, "detector", c.Detector, "keypoint detector: SHITOMASI, HARRIS, FAST, BRISK, ORB, AKAZE, SIFT")
	fs.TextVar(&c.Descriptor, "descriptor", c.Descriptor, "descriptor: BRISK, BRIEF, ORB, FREAK, AKAZE, SIFT")
	fs.TextVar(&c.Matcher, "matcher", c.Matcher, "matcher: MAT_BF, MAT_FLANN")
	fs.TextVar(&c.Selector, "selector", c.Selector, "selector: SEL_NN, SEL_KNN")

	fs.BoolVar(&c.FocusOnVehicle, "focus", c.FocusOnVehicle, "keep only keypoints on the preceding vehicle")
	fs.BoolVar(&c.LimitKeypoints, "limit", c.LimitKeypoints, "keep only the strongest keypoints")
	fs.IntVar(&c.MaxKeypoints, "max-keypoints", c.MaxKeypoints, "keypoints kept when -limit is set")
	fs.BoolVar(&c.Params.Match.CrossCheck, "cross-check", c.Params.Match.CrossCheck, "require mutual best matches (MAT_BF with SEL_NN)")
	fs.IntVar(&c.Params.Workers, "workers", c.Params.Workers, "goroutines used by the Harris picker")

	fs.BoolVar(&c.Visualize, "visualize", c.Visualize, "write keypoint and match images")
	fs.StringVar(&c.OutputDir, "out", c.OutputDir, "output directory for -visualize")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Sequence.LastIndex < c.Sequence.FirstIndex {
		return fmt.Errorf("last frame %d precedes first frame %d", c.Sequence.LastIndex, c.Sequence.FirstIndex)
	}
	if c.Sequence.FillWidth < 0 {
		return fmt.Errorf("fill width %d must not be negative", c.Sequence.FillWidth)
	}
	if c.BufferSize < 2 {
		return fmt.Errorf("buffer size %d must be at least 2 to match consecutive frames", c.BufferSize)
	}
	if c.LimitKeypoints && c.MaxKeypoints < 1 {
		return fmt.Errorf("max keypoints %d must be positive", c.MaxKeypoints)
	}
	if c.FocusOnVehicle && c.ROI.Empty() {
		return errors.New("roi must have a positive width and height")
	}
	if c.Visualize && c.OutputDir == "" {
		return errors.New("visualize requires an output directory")
	}
	// OpenCV computes AKAZE descriptors only on AKAZE keypoints
	if c.Descriptor == features.DescriptorAKAZE && c.Detector != features.DetectorAKAZE {
		return errors.New("AKAZE descriptors require AKAZE keypoints")
	}
	if c.Descriptor == features.DescriptorORB && c.Detector == features.DetectorSIFT {
		return errors.New("ORB descriptors cannot be computed on SIFT keypoints")
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
