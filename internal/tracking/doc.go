// Package tracking runs keypoint detection, description and matching over
// a sequence of camera frames.
//
// Frames are held in a RingBuffer of fixed capacity so memory stays bounded
// however long the sequence is. Every frame is matched against the one
// before it; per-frame statistics and a run summary are collected along
// the way.
package tracking
