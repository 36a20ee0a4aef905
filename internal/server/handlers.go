package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/config"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/corners"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/imaging"
	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/tracking"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Error(component, err, map[string]interface{}{"tool": params.Name})
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches to the handler of the named tool.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_crop_roi":
		return s.handleImageCropROI(args)

	case "keypoints_detect":
		return s.handleKeypointsDetect(args)
	case "corners_pick":
		return s.handleCornersPick(args)

	case "descriptors_extract":
		return s.handleDescriptorsExtract(args)
	case "keypoints_match":
		return s.handleKeypointsMatch(args)

	case "sequence_track":
		return s.handleSequenceTrack(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Image information ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageCropROIArgs struct {
	Path  string        `json:"path"`
	ROI   *imaging.Rect `json:"roi"`
	Scale float64       `json:"scale"`
}

func (s *Server) handleImageCropROI(args json.RawMessage) (interface{}, error) {
	var a imageCropROIArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	roi := imaging.VehicleROI
	if a.ROI != nil {
		roi = *a.ROI
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropRegion(img, roi, a.Scale)
}

// === Keypoints ===

// detectArgs is shared by every tool that detects keypoints.
type detectArgs struct {
	Detector *features.DetectorType `json:"detector"`
	ROI      *imaging.Rect          `json:"roi"`
	Limit    int                    `json:"limit"`
}

func (a detectArgs) detector() features.DetectorType {
	if a.Detector == nil {
		return features.DetectorShiTomasi
	}
	return *a.Detector
}

// detect loads path as grayscale and returns its keypoints after the
// optional roi and limit.
func (s *Server) detect(path string, a detectArgs) (*image.Gray, []features.Keypoint, error) {
	gray, err := s.cache.LoadGray(path)
	if err != nil {
		return nil, nil, err
	}
	kps, err := s.engine.Detect(gray, a.detector())
	if err != nil {
		return nil, nil, err
	}
	if a.ROI != nil {
		kps = tracking.FilterROI(kps, *a.ROI)
	}
	if a.Limit > 0 {
		kps = tracking.RetainBest(kps, a.Limit)
	}
	return gray, kps, nil
}

type keypointsDetectArgs struct {
	Path string `json:"path"`
	detectArgs
	Draw bool `json:"draw"`
}

// KeypointsResult is returned by keypoints_detect.
type KeypointsResult struct {
	Detector  string                 `json:"detector"`
	Count     int                    `json:"count"`
	Keypoints []features.Keypoint    `json:"keypoints"`
	Overlay   *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handleKeypointsDetect(args json.RawMessage) (interface{}, error) {
	var a keypointsDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	_, kps, err := s.detect(a.Path, a.detectArgs)
	if err != nil {
		return nil, err
	}

	result := &KeypointsResult{
		Detector:  a.detector().String(),
		Count:     len(kps),
		Keypoints: kps,
	}
	if a.Draw {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		label := fmt.Sprintf("%s n=%d", result.Detector, len(kps))
		drawn, err := imaging.DrawKeypoints(img, kps, imaging.KeypointStyle{Rich: true, Label: label})
		if err != nil {
			return nil, err
		}
		if result.Overlay, err = imaging.EncodePNG(drawn); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type cornersPickArgs struct {
	Response     [][]float64 `json:"response"`
	ApertureSize *int        `json:"aperture_size"`
	MinResponse  *float64    `json:"min_response"`
	Workers      int         `json:"workers"`
}

// CornersResult is returned by corners_pick.
type CornersResult struct {
	Rows      int                `json:"rows"`
	Cols      int                `json:"cols"`
	Count     int                `json:"count"`
	Keypoints []corners.Keypoint `json:"keypoints"`
}

func (s *Server) handleCornersPick(args json.RawMessage) (interface{}, error) {
	var a cornersPickArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	m, err := corners.FromRows(a.Response)
	if err != nil {
		return nil, err
	}

	p := corners.Params{ApertureSize: 3, MinResponse: 100}
	if a.ApertureSize != nil {
		p.ApertureSize = *a.ApertureSize
	}
	if a.MinResponse != nil {
		p.MinResponse = *a.MinResponse
	}
	if p.ApertureSize < 0 {
		return nil, fmt.Errorf("%w: aperture size %d must not be negative", corners.ErrInvalidInput, p.ApertureSize)
	}

	var kps []corners.Keypoint
	if a.Workers > 1 {
		kps = corners.PickParallel(m, p, a.Workers)
	} else {
		kps = corners.Pick(m, p)
	}

	return &CornersResult{
		Rows:      m.Rows(),
		Cols:      m.Cols(),
		Count:     len(kps),
		Keypoints: kps,
	}, nil
}

// === Descriptors and matching ===

type describeArgs struct {
	detectArgs
	Descriptor *features.DescriptorType `json:"descriptor"`
}

func (a describeArgs) descriptor() features.DescriptorType {
	if a.Descriptor == nil {
		return features.DescriptorBRIEF
	}
	return *a.Descriptor
}

type descriptorsExtractArgs struct {
	Path string `json:"path"`
	describeArgs
	MaxRows *int `json:"max_rows"`
}

// DescriptorsResult is returned by descriptors_extract.
type DescriptorsResult struct {
	Detector   string              `json:"detector"`
	Descriptor string              `json:"descriptor"`
	Count      int                 `json:"count"`
	Binary     bool                `json:"binary"`
	Width      int                 `json:"width"`
	Keypoints  []features.Keypoint `json:"keypoints"`
	HexRows    []string            `json:"hex_rows,omitempty"`
	FloatRows  [][]float32         `json:"float_rows,omitempty"`
}

func (s *Server) handleDescriptorsExtract(args json.RawMessage) (interface{}, error) {
	var a descriptorsExtractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	maxRows := 10
	if a.MaxRows != nil {
		maxRows = *a.MaxRows
	}

	gray, kps, err := s.detect(a.Path, a.detectArgs)
	if err != nil {
		return nil, err
	}
	kps, desc, err := s.engine.Describe(gray, kps, a.descriptor())
	if err != nil {
		return nil, err
	}

	result := &DescriptorsResult{
		Detector:   a.detector().String(),
		Descriptor: a.descriptor().String(),
		Count:      desc.Len(),
		Binary:     desc.IsBinary(),
		Keypoints:  kps,
	}
	if desc.IsBinary() {
		for i, row := range desc.Binary {
			result.Width = len(row)
			if i < maxRows {
				result.HexRows = append(result.HexRows, hex.EncodeToString(row))
			}
		}
	} else {
		for i, row := range desc.Float {
			result.Width = len(row)
			if i < maxRows {
				result.FloatRows = append(result.FloatRows, row)
			}
		}
	}
	return result, nil
}

type keypointsMatchArgs struct {
	PathA string `json:"path_a"`
	PathB string `json:"path_b"`
	describeArgs
	Matcher  features.MatcherType  `json:"matcher"`
	Selector features.SelectorType `json:"selector"`
	Draw     bool                  `json:"draw"`
}

// MatchResult is returned by keypoints_match.
type MatchResult struct {
	Detector     string                 `json:"detector"`
	Descriptor   string                 `json:"descriptor"`
	Matcher      string                 `json:"matcher"`
	Selector     string                 `json:"selector"`
	KeypointsA   int                    `json:"keypoints_a"`
	KeypointsB   int                    `json:"keypoints_b"`
	Count        int                    `json:"count"`
	MeanDistance float64                `json:"mean_distance"`
	Matches      []features.Match       `json:"matches"`
	Overlay      *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) describe(path string, a describeArgs) ([]features.Keypoint, *features.Descriptors, error) {
	gray, kps, err := s.detect(path, a.detectArgs)
	if err != nil {
		return nil, nil, err
	}
	return s.engine.Describe(gray, kps, a.descriptor())
}

func (s *Server) handleKeypointsMatch(args json.RawMessage) (interface{}, error) {
	var a keypointsMatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	kpsA, descA, err := s.describe(a.PathA, a.describeArgs)
	if err != nil {
		return nil, fmt.Errorf("path_a: %w", err)
	}
	kpsB, descB, err := s.describe(a.PathB, a.describeArgs)
	if err != nil {
		return nil, fmt.Errorf("path_b: %w", err)
	}

	matches, err := s.engine.Match(descA, descB, a.Matcher, a.Selector)
	if err != nil {
		return nil, err
	}

	result := &MatchResult{
		Detector:   a.detector().String(),
		Descriptor: a.descriptor().String(),
		Matcher:    a.Matcher.String(),
		Selector:   a.Selector.String(),
		KeypointsA: len(kpsA),
		KeypointsB: len(kpsB),
		Count:      len(matches),
		Matches:    matches,
	}
	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.Distance
		}
		result.MeanDistance = sum / float64(len(matches))
	}

	if a.Draw {
		imgA, err := s.cache.Load(a.PathA)
		if err != nil {
			return nil, err
		}
		imgB, err := s.cache.Load(a.PathB)
		if err != nil {
			return nil, err
		}
		drawn, err := imaging.DrawMatches(imgA, kpsA, imgB, kpsB, matches)
		if err != nil {
			return nil, err
		}
		if result.Overlay, err = imaging.EncodePNG(drawn); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// === Sequences ===

type sequenceTrackArgs struct {
	Paths []string `json:"paths"`
	describeArgs
	Matcher  features.MatcherType  `json:"matcher"`
	Selector features.SelectorType `json:"selector"`
}

// handleSequenceTrack stops between frames once ctx is cancelled.
func (s *Server) handleSequenceTrack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sequenceTrackArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths must not be empty")
	}

	cfg := config.Default()
	cfg.Params = s.params
	cfg.Detector = a.detector()
	cfg.Descriptor = a.descriptor()
	cfg.Matcher = a.Matcher
	cfg.Selector = a.Selector
	cfg.FocusOnVehicle = a.ROI != nil
	if a.ROI != nil {
		cfg.ROI = *a.ROI
	}
	cfg.LimitKeypoints = a.Limit > 0
	if a.Limit > 0 {
		cfg.MaxKeypoints = a.Limit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// a private cache so the frames do not linger in the server cache
	p := tracking.NewPipeline(cfg, s.engine, imaging.NewImageCache(), s.log)
	return p.Run(ctx, a.Paths)
}
