package tracking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/config"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/logger"
)

const component = "tracking"

// Report is the outcome of a Run.
type Report struct {
	Summary Summary      `json:"summary"`
	Frames  []FrameStats `json:"frames"`
}

// Pipeline runs detection, description and matching over an image
// sequence, one frame at a time.
type Pipeline struct {
	cfg    *config.Config
	engine *features.Engine
	cache  *imaging.ImageCache
	log    logger.Logger

	// last holds the buffer of the most recent Run.
	last *RingBuffer
}

// NewPipeline wires a pipeline. A nil cache or logger gets a fresh cache or
// a no-op logger.
func NewPipeline(cfg *config.Config, engine *features.Engine, cache *imaging.ImageCache, log logger.Logger) *Pipeline {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Pipeline{cfg: cfg, engine: engine, cache: cache, log: log}
}

// Buffer returns the frames left in the buffer after the last Run.
func (p *Pipeline) Buffer() *RingBuffer { return p.last }

// Run processes paths in order. Each frame is matched against the frame
// before it. Cancelling ctx stops the run before the next frame; the frames
// finished so far are returned together with ctx's error.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	report := &Report{
		Summary: Summary{
			RunID:      uuid.NewString(),
			Detector:   p.cfg.Detector.String(),
			Descriptor: p.cfg.Descriptor.String(),
			Matcher:    p.cfg.Matcher.String(),
			Selector:   p.cfg.Selector.String(),
		},
		Frames: make([]FrameStats, 0, len(paths)),
	}
	runLog := map[string]interface{}{"run_id": report.Summary.RunID}

	if p.cfg.Visualize {
		if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	buf := NewRingBuffer(p.cfg.BufferSize)
	p.last = buf

	var runErr error
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			p.log.Warning(component, "run cancelled", map[string]interface{}{
				"run_id": report.Summary.RunID,
				"frames": i,
			})
			runErr = err
			break
		}

		frame, fs, err := p.processFrame(i, path, buf)
		if err != nil {
			p.log.Error(component, err, map[string]interface{}{"run_id": report.Summary.RunID, "path": path})
			runErr = err
			break
		}
		report.Frames = append(report.Frames, fs)

		if p.cfg.Visualize {
			if err := p.visualize(i, frame, buf.Last(1)); err != nil {
				runErr = err
				break
			}
		}

		p.log.Info(component, fmt.Sprintf("frame %d: %d keypoints, %d matches", i, fs.Keypoints, fs.Matches), map[string]interface{}{
			"run_id":      report.Summary.RunID,
			"path":        path,
			"keypoints":   fs.Keypoints,
			"matches":     fs.Matches,
			"size_mean":   fs.SizeMean,
			"describe_ms": fs.DescribeMs,
		})
	}

	summarize(&report.Summary, report.Frames)
	report.Summary.Elapsed = time.Since(start)
	runLog["frames"] = report.Summary.Frames
	runLog["total_matches"] = report.Summary.TotalMatches
	p.log.Info(component, "run finished", runLog)

	return report, runErr
}

func (p *Pipeline) processFrame(index int, path string, buf *RingBuffer) (*DataFrame, FrameStats, error) {
	fs := FrameStats{Index: index, Path: path}

	img, err := p.cache.Load(path)
	if err != nil {
		return nil, fs, fmt.Errorf("frame %d: %w", index, err)
	}
	gray, err := p.cache.LoadGray(path)
	if err != nil {
		return nil, fs, fmt.Errorf("frame %d: %w", index, err)
	}

	frame := &DataFrame{Path: path, Image: img, Gray: gray}
	if dropped := buf.Push(frame); dropped != nil && dropped.Path != path {
		p.cache.Evict(dropped.Path)
	}

	t := time.Now()
	kps, err := p.engine.Detect(gray, p.cfg.Detector)
	if err != nil {
		return nil, fs, fmt.Errorf("frame %d: %w", index, err)
	}
	fs.DetectMs = sinceMs(t)
	fs.Detected = len(kps)

	if p.cfg.FocusOnVehicle {
		kps = FilterROI(kps, p.cfg.ROI)
	}
	if p.cfg.LimitKeypoints {
		kps = RetainBest(kps, p.cfg.MaxKeypoints)
		p.log.Debug(component, "keypoints limited", map[string]interface{}{"max": p.cfg.MaxKeypoints})
	}

	t = time.Now()
	kps, desc, err := p.engine.Describe(gray, kps, p.cfg.Descriptor)
	if err != nil {
		return nil, fs, fmt.Errorf("frame %d: %w", index, err)
	}
	fs.DescribeMs = sinceMs(t)
	frame.Keypoints = kps
	frame.Descriptors = desc
	fs.Keypoints = len(kps)
	fs.Described = desc.Len()
	fs.SizeMean, fs.SizeStdDev = sizeStats(kps)

	if prev := buf.Last(1); prev != nil {
		t = time.Now()
		matches, err := p.engine.Match(prev.Descriptors, desc, p.cfg.Matcher, p.cfg.Selector)
		if err != nil {
			return nil, fs, fmt.Errorf("frame %d: %w", index, err)
		}
		fs.MatchMs = sinceMs(t)
		frame.Matches = matches
		fs.Matches = len(matches)
	}

	return frame, fs, nil
}

func (p *Pipeline) visualize(index int, cur, prev *DataFrame) error {
	base := strings.TrimSuffix(filepath.Base(cur.Path), filepath.Ext(cur.Path))

	label := fmt.Sprintf("%s n=%d", p.cfg.Detector, len(cur.Keypoints))
	kpImg, err := imaging.DrawKeypoints(cur.Image, cur.Keypoints, imaging.KeypointStyle{Rich: true, Label: label})
	if err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}
	if err := imaging.SaveImage(kpImg, filepath.Join(p.cfg.OutputDir, base+"_keypoints.png")); err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}

	if prev == nil {
		return nil
	}
	mImg, err := imaging.DrawMatches(prev.Image, prev.Keypoints, cur.Image, cur.Keypoints, cur.Matches)
	if err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}
	return imaging.SaveImage(mImg, filepath.Join(p.cfg.OutputDir, base+"_matches.png"))
}

// FilterROI keeps the keypoints inside r, preserving their order.
func FilterROI(kps []features.Keypoint, r imaging.Rect) []features.Keypoint {
	out := make([]features.Keypoint, 0, len(kps))
	for _, kp := range kps {
		if r.Contains(kp.X, kp.Y) {
			out = append(out, kp)
		}
	}
	return out
}

// RetainBest keeps the n keypoints with the strongest response. Ties are
// broken by position in kps, and the survivors keep their original order.
func RetainBest(kps []features.Keypoint, n int) []features.Keypoint {
	if n < 0 {
		n = 0
	}
	if len(kps) <= n {
		return kps
	}

	idx := make([]int, len(kps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return kps[idx[a]].Response > kps[idx[b]].Response
	})
	idx = idx[:n]
	sort.Ints(idx)

	out := make([]features.Keypoint, n)
	for i, j := range idx {
		out[i] = kps[j]
	}
	return out
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
