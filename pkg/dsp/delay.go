package dsp

// Echo is a feedback delay with a dry/wet mix and one ring buffer per channel.
type Echo struct {
	lines    [][]float32
	pos      []int
	delay    int
	feedback float32
	mix      float32
}

// NewEcho allocates ring buffers long enough for MaxDelaySeconds at sampleRate.
func NewEcho(channels int, sampleRate float64) *Echo {
	size := int(MaxDelaySeconds*sampleRate) + 1
	e := &Echo{
		lines: make([][]float32, channels),
		pos:   make([]int, channels),
		delay: 1,
	}
	for ch := range e.lines {
		e.lines[ch] = make([]float32, size)
	}
	return e
}

// Set configures delay time in seconds, feedback and mix.
func (e *Echo) Set(sampleRate, seconds, feedback, mix float64) {
	size := len(e.lines[0])
	d := int(clamp(seconds, 0, MaxDelaySeconds) * sampleRate)
	if d < 1 {
		d = 1
	}
	if d >= size {
		d = size - 1
	}
	e.delay = d
	e.feedback = float32(clamp(feedback, 0, MaxFeedback))
	e.mix = float32(clamp(mix, 0, 1))
}

// Reset clears the delay lines.
func (e *Echo) Reset() {
	for ch := range e.lines {
		for i := range e.lines[ch] {
			e.lines[ch][i] = 0
		}
		e.pos[ch] = 0
	}
}

// Process runs the echo in place. Channels beyond the allocated count pass through.
func (e *Echo) Process(channels [][]float32) {
	for ch, data := range channels {
		if ch >= len(e.lines) {
			break
		}
		line := e.lines[ch]
		size := len(line)
		w := e.pos[ch]
		for i, x := range data {
			r := w - e.delay
			if r < 0 {
				r += size
			}
			delayed := line[r]
			line[w] = x + delayed*e.feedback
			data[i] = x*(1-e.mix) + delayed*e.mix
			w++
			if w == size {
				w = 0
			}
		}
		e.pos[ch] = w
	}
}
