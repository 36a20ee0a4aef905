// Package imaging loads camera frames and renders keypoints and matches on
// top of them.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Keypoint positions are
// float64; they are rounded to the nearest pixel when drawn. A Rect covers
// columns [X, X+Width) and rows [Y, Y+Height).
//
// # Grayscale
//
// Detectors work on *image.Gray anchored at (0,0). ToGray and
// ImageCache.LoadGray produce that form from any decoded image.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The drawing functions never modify
// their inputs; they return a new *image.NRGBA.
package imaging
