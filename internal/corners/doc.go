// Package corners computes dense corner-response maps and picks local maxima
// from them.
//
// The package has two halves:
//
//   - Response operators (HarrisResponse, MinEigenResponse) turn a grayscale
//     image into a ResponseMap holding one score per pixel.
//   - The local-maximum picker (Pick, PickParallel) turns a ResponseMap into
//     an ordered list of Keypoints.
//
// # Coordinate System
//
// Maps are indexed by (row, col) with (0,0) at the top-left pixel. Rows grow
// downward and columns grow rightward, matching image.Gray's (Y, X).
//
// # Picking Rules
//
// A pixel becomes a keypoint when its response is at least MinResponse and
// no pixel in the square window of half-width ApertureSize around it has a
// strictly larger qualifying response. Windows are clipped at the map
// border. Pixels that tie for the window maximum are all kept, so a plateau
// of equal responses yields one keypoint per plateau pixel.
//
// Output is in row-major scan order and is fully determined by the input,
// so repeated calls return identical slices.
//
// # Thread Safety
//
// A ResponseMap is never modified after construction and may be shared
// between goroutines. PickParallel relies on this.
package corners
