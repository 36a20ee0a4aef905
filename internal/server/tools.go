package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var (
	detectorNames   = []string{"SHITOMASI", "HARRIS", "FAST", "BRISK", "ORB", "AKAZE", "SIFT"}
	descriptorNames = []string{"BRISK", "BRIEF", "ORB", "FREAK", "AKAZE", "SIFT"}
)

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func detectorProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        detectorNames,
		"description": "Keypoint detector. BRISK, ORB, AKAZE and SIFT need a build with OpenCV. Default SHITOMASI",
		"default":     "SHITOMASI",
	}
}

func descriptorProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        descriptorNames,
		"description": "Descriptor extractor. Only BRIEF is available without OpenCV. Default BRIEF",
		"default":     "BRIEF",
	}
}

func roiProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional region of interest; keypoints outside it are discarded",
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "integer"},
			"y":      map[string]interface{}{"type": "integer"},
			"width":  map[string]interface{}{"type": "integer"},
			"height": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x", "y", "width", "height"},
	}
}

func limitProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Optional: keep only this many keypoints with the strongest response. 0 keeps all",
		"default":     0,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it is grayscale.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop_roi",
			Description: "Crop a region of interest and return it as base64 PNG. Without a region the preceding-vehicle box 535,180 180x150 is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"roi":  roiProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Keypoints
		{
			Name:        "keypoints_detect",
			Description: "Detect keypoints in an image. Returns the keypoints with position, size, angle and response, and optionally a rendering.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty("Absolute path to the image file"),
					"detector": detectorProperty(),
					"roi":      roiProperty(),
					"limit":    limitProperty(),
					"draw": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a base64 PNG with the keypoints drawn. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "corners_pick",
			Description: "Pick local maxima from a corner response map: a pixel is kept when its response reaches min_response and no qualifying response in its (2*aperture_size+1) square window is larger. Returns keypoints in row-major order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"response": map[string]interface{}{
						"type":        "array",
						"description": "Response map as rows of numbers; all rows must have the same length",
						"items": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "number"},
						},
					},
					"aperture_size": map[string]interface{}{
						"type":        "integer",
						"description": "Window half-width and keypoint size source. Default 3",
						"default":     3,
					},
					"min_response": map[string]interface{}{
						"type":        "number",
						"description": "Inclusive response threshold. Default 100",
						"default":     100,
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Optional: split rows across this many goroutines. Default 1",
						"default":     1,
					},
				},
				"required": []string{"response"},
			},
		},

		// Descriptors and matching
		{
			Name:        "descriptors_extract",
			Description: "Detect keypoints and compute a descriptor for each. Keypoints the extractor cannot describe are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty("Absolute path to the image file"),
					"detector":   detectorProperty(),
					"descriptor": descriptorProperty(),
					"roi":        roiProperty(),
					"limit":      limitProperty(),
					"max_rows": map[string]interface{}{
						"type":        "integer",
						"description": "Descriptor rows to include in the result (hex for binary descriptors). Default 10",
						"default":     10,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "keypoints_match",
			Description: "Match keypoints of path_a (query) against path_b (train) and optionally render the matches side by side.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path_a":     pathProperty("Absolute path to the first (previous) image"),
					"path_b":     pathProperty("Absolute path to the second (current) image"),
					"detector":   detectorProperty(),
					"descriptor": descriptorProperty(),
					"roi":        roiProperty(),
					"limit":      limitProperty(),
					"matcher": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"MAT_BF", "MAT_FLANN"},
						"description": "Brute force or FLANN. Default MAT_BF",
						"default":     "MAT_BF",
					},
					"selector": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"SEL_NN", "SEL_KNN"},
						"description": "Nearest neighbor, or k=2 with the distance ratio test. Default SEL_NN",
						"default":     "SEL_NN",
					},
					"draw": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a base64 PNG with the matches drawn. Default false",
						"default":     false,
					},
				},
				"required": []string{"path_a", "path_b"},
			},
		},

		// Sequences
		{
			Name:        "sequence_track",
			Description: "Run detection, description and matching over an ordered list of frames and return per-frame statistics and a run summary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths of the frames in order",
						"items":       map[string]interface{}{"type": "string"},
					},
					"detector":   detectorProperty(),
					"descriptor": descriptorProperty(),
					"roi":        roiProperty(),
					"limit":      limitProperty(),
					"matcher": map[string]interface{}{
						"type":    "string",
						"enum":    []string{"MAT_BF", "MAT_FLANN"},
						"default": "MAT_BF",
					},
					"selector": map[string]interface{}{
						"type":    "string",
						"enum":    []string{"SEL_NN", "SEL_KNN"},
						"default": "SEL_NN",
					},
				},
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
