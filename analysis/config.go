package analysis

// Config collects the session-level analysis parameters. Defaults match
// the recording rig: 1471-frame trials at 294 Hz side/bottom video
// (3.4 ms frames), 25 kHz breathing, 17 ms GLM bins.
type Config struct {
	// FrameCount is the canonical per-trial video frame count; trials
	// deviating from it are excluded, motion traces must tile it.
	FrameCount int `json:"frame_count"`

	// FrameCountBody is the body camera's per-trial frame count.
	FrameCountBody int `json:"frame_count_body"`

	// VideoSampleInterval is the video frame interval in seconds.
	VideoSampleInterval float64 `json:"video_sample_interval"`

	// BinWidth is the GLM time-bin width in seconds.
	BinWidth float64 `json:"bin_width"`

	// TongueThreshold gates tongue tracking by per-view confidence.
	TongueThreshold float64 `json:"tongue_threshold"`

	// JawBand, BreathingBand, WhiskerBand are the phase-extraction
	// frequency bands in Hz.
	JawBand      [2]float64 `json:"jaw_band"`
	BreathingBand [2]float64 `json:"breathing_band"`
	WhiskerBand  [2]float64 `json:"whisker_band"`

	// BreathingWindow truncates breathing traces for the tuning path
	// (seconds from trial start).
	BreathingWindow float64 `json:"breathing_window"`

	// BreathingDownsample is the stride applied to the raw breathing
	// trace before phase extraction in the tuning path.
	BreathingDownsample int `json:"breathing_downsample"`

	// LickGuard is the non-bout guard interval around lick bouts,
	// seconds.
	LickGuard float64 `json:"lick_guard"`

	// SVDFlipMargin is the median-vs-mean margin of the motion-sign
	// heuristic.
	SVDFlipMargin float64 `json:"svd_flip_margin"`

	// PhaseBins and Permutations parameterize the tuning path.
	PhaseBins    int `json:"phase_bins"`
	Permutations int `json:"permutations"`

	// Workers bounds the per-unit fit concurrency; <=0 means one
	// goroutine per unit.
	Workers int `json:"workers"`
}

// DefaultConfig returns the standard recording-rig constants.
func DefaultConfig() Config {
	return Config{
		FrameCount:          1471,
		FrameCountBody:      500,
		VideoSampleInterval: 0.0034,
		BinWidth:            0.017,
		TongueThreshold:     0.95,
		JawBand:             [2]float64{3, 15},
		BreathingBand:       [2]float64{1, 15},
		WhiskerBand:         [2]float64{3, 25},
		BreathingWindow:     5.0,
		BreathingDownsample: 100,
		LickGuard:           0.2,
		SVDFlipMargin:       0.1,
		PhaseBins:           20,
		Permutations:        100,
		Workers:             0,
	}
}

// TrialDuration is the video-covered span of one trial in seconds.
func (c Config) TrialDuration() float64 {
	return float64(c.FrameCount) * c.VideoSampleInterval
}
