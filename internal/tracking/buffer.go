package tracking

import (
	"image"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
)

// DataFrame holds everything computed for one camera frame.
type DataFrame struct {
	Path  string
	Image image.Image
	Gray  *image.Gray

	Keypoints   []features.Keypoint
	Descriptors *features.Descriptors

	// Matches link the previous frame (QueryIdx) to this one (TrainIdx).
	Matches []features.Match
}

// RingBuffer keeps the most recent frames up to a fixed capacity. Pushing
// into a full buffer drops the oldest frame.
type RingBuffer struct {
	frames []*DataFrame
	start  int
	n      int
}

// NewRingBuffer returns an empty buffer. Capacities below 1 are raised to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{frames: make([]*DataFrame, capacity)}
}

// Push appends f and returns the frame it displaced, or nil.
func (b *RingBuffer) Push(f *DataFrame) *DataFrame {
	capacity := len(b.frames)
	if b.n < capacity {
		b.frames[(b.start+b.n)%capacity] = f
		b.n++
		return nil
	}
	dropped := b.frames[b.start]
	b.frames[b.start] = f
	b.start = (b.start + 1) % capacity
	return dropped
}

func (b *RingBuffer) Len() int { return b.n }
func (b *RingBuffer) Cap() int { return len(b.frames) }

// Last returns the frame k positions back from the newest; Last(0) is the
// newest and Last(1) the one before it. It returns nil when k is out of
// range.
func (b *RingBuffer) Last(k int) *DataFrame {
	if k < 0 || k >= b.n {
		return nil
	}
	return b.frames[(b.start+b.n-1-k)%len(b.frames)]
}

// Frames returns the buffered frames from oldest to newest.
func (b *RingBuffer) Frames() []*DataFrame {
	out := make([]*DataFrame, b.n)
	for i := range out {
		out[i] = b.frames[(b.start+i)%len(b.frames)]
	}
	return out
}
