package session

// Store is the narrow fetch contract with the external record store.
// Every method returns fully materialized slices ordered by numeric
// trial; the library never queries, joins or filters upstream data
// beyond the trial subsets it passes in.
//
// Implementations live outside this module (the persistence
// collaborator); tests use in-memory fakes.
type Store interface {
	// TrialIDs returns the session's trial identifiers in ascending
	// numeric order.
	TrialIDs() ([]TrialID, error)

	// Units returns the session's units passing quality criteria.
	Units() ([]UnitID, error)

	// TrialSpikes returns one spike train per requested trial, in the
	// order requested, for the given unit.
	TrialSpikes(unit UnitID, trials []TrialID) ([]SpikeTrain, error)

	// JawTrace returns the per-trial jaw vertical displacement trace
	// from the given camera view.
	JawTrace(view CameraView, trials []TrialID) ([][]float64, error)

	// Jaw3D returns the per-trial calibrated 3-D jaw position.
	Jaw3D(trials []TrialID) ([]Trace3D, error)

	// Tongue3D returns the per-trial calibrated 3-D tongue position.
	Tongue3D(trials []TrialID) ([]Trace3D, error)

	// TongueLikelihood returns the per-trial tongue tracking confidence
	// from the given camera view, one value per frame in [0, 1].
	TongueLikelihood(view CameraView, trials []TrialID) ([][]float64, error)

	// Breathing returns the per-trial breathing trace with its
	// device-local sample timestamps.
	Breathing(trials []TrialID) ([]SampledTrace, error)

	// MotionSVD returns the session's leading whisker-pad motion
	// component as one flat trace covering all trials back to back.
	MotionSVD() ([]float64, error)

	// BodySVD returns the session's leading body-camera motion
	// component, flat across trials at the body camera's frame count.
	BodySVD() ([]float64, error)

	// SamplingRate returns the sampling rate in Hz for the named
	// device/view, fetched once per session.
	SamplingRate(view CameraView) (float64, error)

	// VideoExclusions returns the session's bad/missing trial
	// annotation. A missing annotation is an empty VideoExclusions,
	// not an error.
	VideoExclusions() (VideoExclusions, error)
}
