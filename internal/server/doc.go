// Package server implements an MCP (Model Context Protocol) server for
// keypoint detection, description and matching.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_crop_roi: Extract a region of interest, by default the preceding vehicle
//
// Keypoints:
//   - keypoints_detect: Run a detector (SHITOMASI, HARRIS, FAST, ...)
//   - corners_pick: Non-maximum suppression over a caller supplied response map
//
// Descriptors and matching:
//   - descriptors_extract: Detect and describe keypoints
//   - keypoints_match: Match keypoints between two images
//
// Sequences:
//   - sequence_track: Run the full pipeline over ordered frames
//
// Detector, descriptor, matcher and selector names are case-insensitive.
//
// # Image Caching
//
// Images and their grayscale conversions are cached by path for the lifetime
// of the server. sequence_track uses a private cache that only holds the
// frames still in its ring buffer.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(features.DefaultParams(), log)
//	if err := srv.Run(ctx); err != nil {
//	    log.Error("main", err, nil)
//	}
package server
