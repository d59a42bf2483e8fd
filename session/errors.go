package session

import "errors"

var (
	// ErrTrialMismatch reports a trial-count disagreement between
	// modalities (e.g. spike trials vs tracking trials). The owning
	// session computation is abandoned; no partial result is produced.
	ErrTrialMismatch = errors.New("mismatch between tracking and ephys trial counts")

	// ErrBadVideo reports structural corruption of a motion-decomposition
	// trace: its flat length is not an exact multiple of the session's
	// canonical frame count. Fatal for the session's computation.
	ErrBadVideo = errors.New("motion trace length is not a multiple of the frame count")

	// ErrNoUnits reports that a session has no units passing the
	// quality criteria. The computation is skipped, not failed.
	ErrNoUnits = errors.New("no units passing quality criteria")
)
