// Package features detects keypoints, extracts descriptors and matches them
// between images.
//
// Algorithm selection uses closed enumerations (DetectorType,
// DescriptorType, MatcherType, SelectorType) parsed once from their names,
// e.g. "HARRIS", "BRIEF", "MAT_BF", "SEL_KNN".
//
// # Backends
//
// HARRIS, SHITOMASI and FAST detection, BRIEF description and brute-force
// matching are implemented in Go and always available. BRISK, ORB, AKAZE
// and SIFT, and the FLANN matcher, run through OpenCV via gocv and are only
// compiled in with the withcv build tag:
//
//	go build -tags withcv ./...
//
// Without the tag those algorithms return ErrBackendUnavailable.
//
// # Matching
//
// SEL_NN keeps the best candidate per query descriptor. SEL_KNN looks at the
// two best candidates and keeps the first only when its distance is below
// KNNRatio (default 0.8) times the second's.
package features
