package session

// UnitID identifies a single sorted unit within a session.
type UnitID int

// TrialID identifies a trial within a session. Trials are 1-based in the
// upstream store and are always handled in numeric order.
type TrialID int

// CameraView names the tracking camera a trace was derived from.
type CameraView string

const (
	// ViewSide is the side-view tracking camera.
	ViewSide CameraView = "side"
	// ViewBottom is the bottom-view tracking camera.
	ViewBottom CameraView = "bottom"
	// ViewBody is the body camera used for the body motion component.
	ViewBody CameraView = "body"
)

// SpikeTrain holds one unit's spike timestamps for one trial,
// trial-relative in seconds, ascending. Read-only to this library.
type SpikeTrain []float64

// Trace3D holds one trial's 3-D tracking coordinates, one sample per
// video frame.
type Trace3D struct {
	X []float64
	Y []float64
	Z []float64
}

// Frames returns the trial's frame count (the length of the coordinate
// slices; all three are expected to agree).
func (t Trace3D) Frames() int {
	return len(t.Y)
}

// SampledTrace is a physiological trace with explicit sample timestamps,
// used for channels recorded at a device-local rate (breathing).
type SampledTrace struct {
	Samples    []float64
	Timestamps []float64
}

// VideoExclusions collects the per-view trial exclusion sets derived from
// video validation: trials whose tracking has the wrong frame count
// ("bad") and trials with no tracking at all ("missing"). A view with no
// upstream annotation contributes an empty set, never an error.
type VideoExclusions struct {
	BadSide     []TrialID
	BadBottom   []TrialID
	MissingSide []TrialID
	MissingBot  []TrialID
}

// All returns the union of the four exclusion sets.
func (v VideoExclusions) All() map[TrialID]bool {
	set := make(map[TrialID]bool)
	for _, group := range [][]TrialID{v.BadSide, v.BadBottom, v.MissingSide, v.MissingBot} {
		for _, tr := range group {
			set[tr] = true
		}
	}
	return set
}
