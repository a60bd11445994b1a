// Package landmark defines face landmark sets as produced by the upstream
// detector and picks the face the rig should follow.
package landmark

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Anchor indices in the MediaPipe face mesh numbering.
const (
	ForeheadTop = 10
	Chin        = 152
	LeftCheek   = 234
	RightCheek  = 454

	// MinPoints is the smallest landmark set the detector produces.
	MinPoints = 468
)

// ErrInvalidInput marks a landmark set that violates the detector contract.
var ErrInvalidInput = errors.New("invalid input")

// IndexError reports a landmark index the set does not contain.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%v: landmark index %d out of range (set has %d points)", ErrInvalidInput, e.Index, e.Len)
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *IndexError) Unwrap() error {
	return ErrInvalidInput
}

// Set is an ordered landmark list in capture pixel space.
type Set []mgl64.Vec3

// Point returns the landmark at index i. Callers must Validate first.
func (s Set) Point(i int) mgl64.Vec3 {
	return s[i]
}

// Validate checks that every index exists in the set.
func (s Set) Validate(indices ...int) error {
	for _, i := range indices {
		if i < 0 || i >= len(s) {
			return &IndexError{Index: i, Len: len(s)}
		}
	}
	return nil
}

// AnchorIndices are the landmarks the pose estimator reads.
func AnchorIndices() []int {
	return []int{ForeheadTop, Chin, LeftCheek, RightCheek}
}

// Candidate is one face reported by the detector for a frame.
type Candidate struct {
	Landmarks  Set
	Confidence float64 // 0-1
}
