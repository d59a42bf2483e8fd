package analysis

import (
	"fmt"

	"github.com/RyanBlaney/orofacial-tuning/algorithms/align"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/glm"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// sessionChannels holds the normalized per-trial rows of every GLM
// predictor channel for the kept trials. Normalization happens here,
// over the full kept set, so train and test partitions share statistics.
type sessionChannels struct {
	jaw    [3][][]float64 // x, y, z
	tongue [3][][]float64
	gate   [][]float64
	trials []session.TrialID

	breathing         [][]float64
	breathingInterval float64

	whisker [][]float64
}

// alignedSet is one trial partition's channels on the common bin grid,
// in design-matrix column order.
type alignedSet struct {
	names []string
	cols  [][]float64
	gate  []float64
	bins  int
}

// loadChannels fetches and normalizes every predictor channel for the
// given trials. Traces with the wrong frame count are structural
// failures here; bad-video trials were excluded upstream.
func (p *Pipeline) loadChannels(trials []session.TrialID) (*sessionChannels, error) {
	frames := p.config.FrameCount

	jaw3d, err := p.store.Jaw3D(trials)
	if err != nil {
		return nil, fmt.Errorf("fetch jaw tracking: %w", err)
	}
	tongue3d, err := p.store.Tongue3D(trials)
	if err != nil {
		return nil, fmt.Errorf("fetch tongue tracking: %w", err)
	}
	if len(jaw3d) != len(trials) || len(tongue3d) != len(trials) {
		return nil, fmt.Errorf("%w: %d trials, %d jaw, %d tongue", session.ErrTrialMismatch, len(trials), len(jaw3d), len(tongue3d))
	}
	for t := range trials {
		if jaw3d[t].Frames() != frames || tongue3d[t].Frames() != frames {
			return nil, fmt.Errorf("%w: trial %d has %d jaw / %d tongue frames, want %d",
				session.ErrBadVideo, trials[t], jaw3d[t].Frames(), tongue3d[t].Frames(), frames)
		}
	}

	likeSide, err := p.store.TongueLikelihood(session.ViewSide, trials)
	if err != nil {
		return nil, fmt.Errorf("fetch side likelihood: %w", err)
	}
	likeBottom, err := p.store.TongueLikelihood(session.ViewBottom, trials)
	if err != nil {
		return nil, fmt.Errorf("fetch bottom likelihood: %w", err)
	}
	gate, err := align.TongueGate(likeSide, likeBottom, p.config.TongueThreshold)
	if err != nil {
		return nil, err
	}

	ch := &sessionChannels{gate: gate, trials: append([]session.TrialID(nil), trials...)}

	for c := range 3 {
		jawRows := coordRows(jaw3d, c)
		tongueRows := coordRows(tongue3d, c)
		ch.jaw[c] = align.ZScoreRows(jawRows)
		masked, err := maskedZScoreRows(tongueRows, gate)
		if err != nil {
			return nil, fmt.Errorf("tongue normalization: %w", err)
		}
		ch.tongue[c] = masked
	}

	breathing, err := p.store.Breathing(trials)
	if err != nil {
		return nil, fmt.Errorf("fetch breathing: %w", err)
	}
	if len(breathing) != len(trials) {
		return nil, fmt.Errorf("%w: %d trials, %d breathing traces", session.ErrTrialMismatch, len(trials), len(breathing))
	}
	trialDuration := p.config.TrialDuration()
	rows := make([][]float64, len(breathing))
	for t, trace := range breathing {
		if len(trace.Timestamps) < 2 {
			return nil, fmt.Errorf("breathing trial %d has %d samples", trials[t], len(trace.Timestamps))
		}
		dt := trace.Timestamps[1] - trace.Timestamps[0]
		if ch.breathingInterval == 0 {
			if dt <= 0 {
				return nil, fmt.Errorf("breathing trial %d has non-increasing timestamps", trials[t])
			}
			ch.breathingInterval = dt
		}
		rows[t] = align.TruncateByTime(trace.Samples, trace.Timestamps, trialDuration)
	}
	ch.breathing = align.ZScoreRows(rows)

	motion, err := p.store.MotionSVD()
	if err != nil {
		return nil, fmt.Errorf("fetch motion component: %w", err)
	}
	motionRows, err := session.ReshapeMotion(motion, frames)
	if err != nil {
		return nil, err
	}
	motionRows = align.ZScoreRows(motionRows)
	ch.whisker, err = motionRowsFor(motionRows, trials)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// alignChannels smooths, decimates and assembles one trial partition
// (positions into the kept-trial order) onto the common bin grid.
// positionMethod selects the smoother for the six tracking channels;
// the gate, breathing and whisker channels always use the boxcar.
func (p *Pipeline) alignChannels(ch *sessionChannels, positions []int, positionMethod align.Smoothing) (*alignedSet, error) {
	aligner, err := align.NewAligner(p.config.BinWidth)
	if err != nil {
		return nil, err
	}
	videoInterval := p.config.VideoSampleInterval

	gateRows, err := align.SelectRows(ch.gate, positions)
	if err != nil {
		return nil, err
	}
	gateCol, err := aligner.AlignRows(gateRows, videoInterval, align.BoxcarSmoothing)
	if err != nil {
		return nil, fmt.Errorf("align gate: %w", err)
	}
	gateCol = align.RebinarizeGate(gateCol)

	set := &alignedSet{gate: gateCol}
	coordNames := [3]string{"x", "y", "z"}
	jawNames := [3]string{glm.PredJawX, glm.PredJawY, glm.PredJawZ}
	tongueNames := [3]string{glm.PredTongueX, glm.PredTongueY, glm.PredTongueZ}

	for c := range 3 {
		rows, err := align.SelectRows(ch.jaw[c], positions)
		if err != nil {
			return nil, err
		}
		col, err := aligner.AlignRows(rows, videoInterval, positionMethod)
		if err != nil {
			return nil, fmt.Errorf("align jaw %s: %w", coordNames[c], err)
		}
		set.names = append(set.names, jawNames[c])
		set.cols = append(set.cols, col)
	}
	for c := range 3 {
		rows, err := align.SelectRows(ch.tongue[c], positions)
		if err != nil {
			return nil, err
		}
		col, err := aligner.AlignRows(rows, videoInterval, positionMethod)
		if err != nil {
			return nil, fmt.Errorf("align tongue %s: %w", coordNames[c], err)
		}
		gated, err := align.ApplyGate(col, gateCol)
		if err != nil {
			return nil, fmt.Errorf("gate tongue %s: %w", coordNames[c], err)
		}
		set.names = append(set.names, tongueNames[c])
		set.cols = append(set.cols, gated)
	}

	breathRows, err := align.SelectRows(ch.breathing, positions)
	if err != nil {
		return nil, err
	}
	breathCol, err := aligner.AlignRows(breathRows, ch.breathingInterval, align.BoxcarSmoothing)
	if err != nil {
		return nil, fmt.Errorf("align breathing: %w", err)
	}
	set.names = append(set.names, glm.PredBreathing)
	set.cols = append(set.cols, breathCol)

	whiskRows, err := align.SelectRows(ch.whisker, positions)
	if err != nil {
		return nil, err
	}
	whiskCol, err := aligner.AlignRows(whiskRows, videoInterval, align.BoxcarSmoothing)
	if err != nil {
		return nil, fmt.Errorf("align whisker: %w", err)
	}
	set.names = append(set.names, glm.PredWhisker)
	set.cols = append(set.cols, whiskCol)

	// The breathing grid can land one bin off the video grid; trim every
	// channel to the shortest so the matrix stays rectangular.
	set.bins = len(set.cols[0])
	for _, col := range set.cols {
		if len(col) < set.bins {
			set.bins = len(col)
		}
	}
	if len(set.gate) < set.bins {
		set.bins = len(set.gate)
	}
	if set.bins == 0 {
		return nil, fmt.Errorf("align channels: empty partition")
	}
	for j := range set.cols {
		set.cols[j] = set.cols[j][:set.bins]
	}
	set.gate = set.gate[:set.bins]
	return set, nil
}

// matrix materializes the partition's design matrix.
func (s *alignedSet) matrix() (*glm.DesignMatrix, error) {
	b := glm.NewBuilder()
	for j, name := range s.names {
		b.Add(name, s.cols[j])
	}
	return b.Build()
}

// restrict keeps only the given bin indices in every column.
func (s *alignedSet) restrict(indices []int) error {
	for j, col := range s.cols {
		out := make([]float64, len(indices))
		for i, idx := range indices {
			if idx < 0 || idx >= len(col) {
				return fmt.Errorf("restrict channels: bin %d out of range [0, %d)", idx, len(col))
			}
			out[i] = col[idx]
		}
		s.cols[j] = out
	}
	s.bins = len(indices)
	return nil
}

// renormalize re-z-scores every column after bin restriction changed the
// sample population. Gated tongue channels use non-zero statistics so
// the masked stretches stay neutral.
func (s *alignedSet) renormalize() {
	for j, name := range s.names {
		switch name {
		case glm.PredTongueX, glm.PredTongueY, glm.PredTongueZ:
			s.cols[j] = align.ZScoreNonZero(s.cols[j])
		default:
			s.cols[j] = align.ZScore(s.cols[j])
		}
	}
}

// coordRows extracts one coordinate axis (0=x, 1=y, 2=z) as rows.
func coordRows(traces []session.Trace3D, axis int) [][]float64 {
	rows := make([][]float64, len(traces))
	for t, tr := range traces {
		switch axis {
		case 0:
			rows[t] = tr.X
		case 1:
			rows[t] = tr.Y
		default:
			rows[t] = tr.Z
		}
	}
	return rows
}

// maskedZScoreRows z-scores a row set using only the samples where the
// gate is 1, preserving row structure.
func maskedZScoreRows(rows, gate [][]float64) ([][]float64, error) {
	if len(rows) != len(gate) {
		return nil, fmt.Errorf("%d rows vs %d gate rows", len(rows), len(gate))
	}
	var flat []float64
	var mask []bool
	for t, row := range rows {
		if len(row) != len(gate[t]) {
			return nil, fmt.Errorf("row %d has %d samples vs %d gate entries", t, len(row), len(gate[t]))
		}
		for i, v := range row {
			flat = append(flat, v)
			mask = append(mask, gate[t][i] == 1)
		}
	}
	normed, err := align.MaskedZScore(flat, mask)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows))
	off := 0
	for t, row := range rows {
		out[t] = normed[off : off+len(row)]
		off += len(row)
	}
	return out, nil
}

// motionRowsFor picks the motion rows for the given trials. Motion rows
// cover the whole session in numeric trial order, so trial N lives at
// row N-1.
func motionRowsFor(rows [][]float64, trials []session.TrialID) ([][]float64, error) {
	out := make([][]float64, len(trials))
	for i, tr := range trials {
		idx := int(tr) - 1
		if idx < 0 || idx >= len(rows) {
			return nil, fmt.Errorf("%w: trial %d outside %d motion rows", session.ErrTrialMismatch, tr, len(rows))
		}
		out[i] = rows[idx]
	}
	return out, nil
}

// trainsToSlices converts spike trains into the plain nested slice the
// binning primitive takes.
func trainsToSlices(trains []session.SpikeTrain) [][]float64 {
	out := make([][]float64, len(trains))
	for i, tr := range trains {
		out[i] = tr
	}
	return out
}

// allPositions returns 0..n-1.
func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
