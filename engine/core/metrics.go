package core

const AVG_COUNT = 30

// Metrics keeps a rolling frame time average and a frames-per-second
// counter. It is owned by a single frame loop.
type Metrics struct {
	frameAvgCounter    int
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int
	accumulatedFrameMS float64
	fps                float64
	total              uint64
	suboptimal         uint64
	recreated          uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records one frame that took frameElapsed seconds. It reports true
// when a new frames-per-second sample became available.
func (m *Metrics) Update(frameElapsed float64) bool {
	frameMS := frameElapsed * 1000.0
	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := 0; i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAvgCounter = (m.frameAvgCounter + 1) % AVG_COUNT

	m.frames++
	m.total++
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
		return true
	}
	return false
}

func (m *Metrics) MarkSuboptimal() { m.suboptimal++ }
func (m *Metrics) MarkRecreated()  { m.recreated++ }

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds over the last
// AVG_COUNT frames.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frames() uint64 {
	return m.total
}

func (m *Metrics) Suboptimal() uint64 {
	return m.suboptimal
}

func (m *Metrics) Recreated() uint64 {
	return m.recreated
}
