package tracking

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/config"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
)

// writeShiftedNoise writes a noise frame whose content is moved right by dx
// and down by dy, and returns its path.
func writeShiftedNoise(t *testing.T, dir, name string, dx, dy int) string {
	t.Helper()
	const w, h = 160, 120
	rng := rand.New(rand.NewSource(7))
	base := make([]uint8, (w+8)*(h+8))
	for i := range base {
		base[i] = uint8(rng.Intn(256))
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x-dx+4, y-dy+4
			img.SetGray(x, y, color.Gray{Y: base[sy*(w+8)+sx]})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Detector = features.DetectorFAST
	cfg.Descriptor = features.DescriptorBRIEF
	cfg.FocusOnVehicle = false
	return cfg
}

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(2)
	if b.Cap() != 2 || b.Len() != 0 || b.Last(0) != nil {
		t.Fatalf("new buffer: cap=%d len=%d", b.Cap(), b.Len())
	}

	f1, f2, f3 := &DataFrame{Path: "1"}, &DataFrame{Path: "2"}, &DataFrame{Path: "3"}

	if d := b.Push(f1); d != nil {
		t.Errorf("first push dropped %v", d.Path)
	}
	if d := b.Push(f2); d != nil {
		t.Errorf("second push dropped %v", d.Path)
	}
	if d := b.Push(f3); d != f1 {
		t.Errorf("third push should drop frame 1, dropped %v", d)
	}

	if b.Len() != 2 {
		t.Errorf("Len: got %d, want 2", b.Len())
	}
	if b.Last(0) != f3 || b.Last(1) != f2 {
		t.Errorf("Last: got %s,%s want 3,2", b.Last(0).Path, b.Last(1).Path)
	}
	if b.Last(2) != nil || b.Last(-1) != nil {
		t.Error("Last out of range should be nil")
	}

	frames := b.Frames()
	if len(frames) != 2 || frames[0] != f2 || frames[1] != f3 {
		t.Errorf("Frames should be oldest first")
	}
}

func TestRingBuffer_MinimumCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	if b.Cap() != 1 {
		t.Fatalf("Cap: got %d, want 1", b.Cap())
	}
	a, c := &DataFrame{Path: "a"}, &DataFrame{Path: "c"}
	b.Push(a)
	if d := b.Push(c); d != a {
		t.Error("capacity 1 should drop on every push")
	}
	if b.Last(0) != c {
		t.Error("newest frame lost")
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	b := NewRingBuffer(3)
	for i := 0; i < 10; i++ {
		b.Push(&DataFrame{Path: string(rune('a' + i))})
	}
	frames := b.Frames()
	want := []string{"h", "i", "j"}
	for i, f := range frames {
		if f.Path != want[i] {
			t.Errorf("frame %d: got %s, want %s", i, f.Path, want[i])
		}
	}
}

func TestFilterROI(t *testing.T) {
	kps := []features.Keypoint{
		{X: 540, Y: 200},
		{X: 100, Y: 200},
		{X: 714.5, Y: 329.5},
		{X: 715, Y: 300},
	}
	got := FilterROI(kps, imaging.VehicleROI)
	if len(got) != 2 || got[0].X != 540 || got[1].X != 714.5 {
		t.Errorf("FilterROI: got %+v", got)
	}
	if got := FilterROI(nil, imaging.VehicleROI); len(got) != 0 {
		t.Errorf("nil input: got %d keypoints", len(got))
	}
}

func TestRetainBest(t *testing.T) {
	kps := []features.Keypoint{
		{X: 0, Response: 5},
		{X: 1, Response: 9},
		{X: 2, Response: 1},
		{X: 3, Response: 9},
		{X: 4, Response: 7},
	}

	tests := []struct {
		n     int
		wantX []float64
	}{
		{0, nil},
		{1, []float64{1}},
		{2, []float64{1, 3}},
		{3, []float64{1, 3, 4}},
		{4, []float64{0, 1, 3, 4}},
		{5, []float64{0, 1, 2, 3, 4}},
		{50, []float64{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		got := RetainBest(kps, tt.n)
		if len(got) != len(tt.wantX) {
			t.Errorf("n=%d: got %d keypoints, want %d", tt.n, len(got), len(tt.wantX))
			continue
		}
		for i, kp := range got {
			if kp.X != tt.wantX[i] {
				t.Errorf("n=%d: keypoint %d has X=%v, want %v", tt.n, i, kp.X, tt.wantX[i])
			}
		}
	}
}

func TestSizeStats(t *testing.T) {
	if m, s := sizeStats(nil); m != 0 || s != 0 {
		t.Errorf("empty: got %v,%v", m, s)
	}
	if m, s := sizeStats([]features.Keypoint{{Size: 7}}); m != 7 || s != 0 {
		t.Errorf("single: got %v,%v", m, s)
	}

	m, s := sizeStats([]features.Keypoint{{Size: 2}, {Size: 4}, {Size: 6}})
	if m != 4 {
		t.Errorf("mean: got %v, want 4", m)
	}
	if math.Abs(s-2) > 1e-12 {
		t.Errorf("std dev: got %v, want 2", s)
	}
}

func TestSummarize(t *testing.T) {
	frames := []FrameStats{
		{Keypoints: 3, SizeMean: 4, SizeStdDev: 2, Matches: 0, DetectMs: 1, DescribeMs: 2},
		{Keypoints: 1, SizeMean: 8, SizeStdDev: 0, Matches: 10, DetectMs: 3, DescribeMs: 4, MatchMs: 5},
		{Keypoints: 0, Matches: 20, DetectMs: 2, DescribeMs: 0, MatchMs: 1},
	}

	var s Summary
	summarize(&s, frames)

	if s.Frames != 3 || s.TotalKeypoints != 4 {
		t.Errorf("frames/keypoints: got %d/%d", s.Frames, s.TotalKeypoints)
	}
	if s.MatchedFrames != 2 || s.TotalMatches != 30 || s.MeanMatches != 15 {
		t.Errorf("matches: got %d frames, %d total, %v mean", s.MatchedFrames, s.TotalMatches, s.MeanMatches)
	}
	if s.MeanDetectMs != 2 || s.MeanMatchMs != 3 {
		t.Errorf("timings: detect %v match %v", s.MeanDetectMs, s.MeanMatchMs)
	}

	// pooled sizes are {2, 4, 6, 8}
	if s.MeanSize != 5 {
		t.Errorf("MeanSize: got %v, want 5", s.MeanSize)
	}
	want := math.Sqrt(20.0 / 3.0)
	if math.Abs(s.SizeStdDev-want) > 1e-12 {
		t.Errorf("SizeStdDev: got %v, want %v", s.SizeStdDev, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	var s Summary
	summarize(&s, nil)
	if s.Frames != 0 || s.MeanKeypoints != 0 {
		t.Errorf("empty run: got %+v", s)
	}
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeShiftedNoise(t, dir, "frame0.png", 0, 0),
		writeShiftedNoise(t, dir, "frame1.png", 3, 2),
		writeShiftedNoise(t, dir, "frame2.png", 3, 2),
	}

	cfg := testConfig()
	cache := imaging.NewImageCache()
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), cache, nil)

	report, err := p.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := uuid.Parse(report.Summary.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", report.Summary.RunID, err)
	}
	if report.Summary.Detector != "FAST" || report.Summary.Descriptor != "BRIEF" {
		t.Errorf("summary names: %s/%s", report.Summary.Detector, report.Summary.Descriptor)
	}
	if len(report.Frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(report.Frames))
	}
	if report.Frames[0].Matches != 0 {
		t.Errorf("first frame has nothing to match, got %d matches", report.Frames[0].Matches)
	}
	for i, fs := range report.Frames {
		if fs.Keypoints == 0 {
			t.Errorf("frame %d: no keypoints", i)
		}
		if fs.Keypoints > fs.Detected {
			t.Errorf("frame %d: %d keypoints after filtering exceeds %d detected", i, fs.Keypoints, fs.Detected)
		}
		if fs.SizeMean != 7 {
			t.Errorf("frame %d: FAST keypoint size mean %v, want 7", i, fs.SizeMean)
		}
	}
	if report.Frames[1].Matches == 0 {
		t.Error("frame 1 should match frame 0")
	}

	// frame 1 is frame 0 shifted by (3,2); identical frames 1 and 2 match in place
	buf := p.Buffer()
	prev, cur := buf.Last(1), buf.Last(0)
	inPlace := 0
	for _, m := range cur.Matches {
		a, b := prev.Keypoints[m.QueryIdx], cur.Keypoints[m.TrainIdx]
		if m.Distance == 0 && a.X == b.X && a.Y == b.Y {
			inPlace++
		}
	}
	if inPlace == 0 {
		t.Error("no exact in-place matches between identical frames")
	}

	// buffer of two keeps frames 1 and 2 cached; frame 0 was evicted
	if n := cache.Len(); n != 2 {
		t.Errorf("cache holds %d images, want 2", n)
	}
	if report.Summary.MatchedFrames != 2 {
		t.Errorf("MatchedFrames: got %d, want 2", report.Summary.MatchedFrames)
	}
}

func TestPipeline_ShiftRecovered(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeShiftedNoise(t, dir, "a.png", 0, 0),
		writeShiftedNoise(t, dir, "b.png", 3, 2),
	}

	cfg := testConfig()
	cfg.Selector = features.SelectorKNN
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), nil, nil)

	if _, err := p.Run(context.Background(), paths); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	prev, cur := p.Buffer().Last(1), p.Buffer().Last(0)
	shifted := 0
	for _, m := range cur.Matches {
		a, b := prev.Keypoints[m.QueryIdx], cur.Keypoints[m.TrainIdx]
		if b.X-a.X == 3 && b.Y-a.Y == 2 {
			shifted++
		}
	}
	if shifted == 0 {
		t.Error("no match recovered the (3,2) shift")
	}
}

func TestPipeline_LimitAndROI(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeShiftedNoise(t, dir, "a.png", 0, 0)}

	cfg := testConfig()
	cfg.FocusOnVehicle = true
	cfg.ROI = imaging.Rect{X: 30, Y: 30, Width: 100, Height: 60}
	cfg.LimitKeypoints = true
	cfg.MaxKeypoints = 5
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), nil, nil)

	report, err := p.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := report.Frames[0].Keypoints; got > 5 {
		t.Errorf("limit: got %d keypoints, want at most 5", got)
	}
	for _, kp := range p.Buffer().Last(0).Keypoints {
		if !cfg.ROI.Contains(kp.X, kp.Y) {
			t.Errorf("keypoint (%v,%v) outside roi", kp.X, kp.Y)
		}
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeShiftedNoise(t, dir, "a.png", 0, 0)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig()
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), nil, nil)
	report, err := p.Run(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if report == nil || len(report.Frames) != 0 {
		t.Errorf("cancelled run should return an empty report")
	}
}

func TestPipeline_MissingFrame(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeShiftedNoise(t, dir, "a.png", 0, 0),
		filepath.Join(dir, "missing.png"),
	}

	cfg := testConfig()
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), nil, nil)
	report, err := p.Run(context.Background(), paths)
	if err == nil {
		t.Fatal("Run should fail on a missing frame")
	}
	if len(report.Frames) != 1 {
		t.Errorf("frames before the failure should be kept, got %d", len(report.Frames))
	}
}

func TestPipeline_Visualize(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	paths := []string{
		writeShiftedNoise(t, dir, "frame0.png", 0, 0),
		writeShiftedNoise(t, dir, "frame1.png", 1, 0),
	}

	cfg := testConfig()
	cfg.Visualize = true
	cfg.OutputDir = out
	p := NewPipeline(cfg, features.NewEngine(cfg.Params, nil), nil, nil)

	if _, err := p.Run(context.Background(), paths); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range []string{"frame0_keypoints.png", "frame1_keypoints.png", "frame1_matches.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "frame0_matches.png")); err == nil {
		t.Error("first frame should not have a match image")
	}
}
