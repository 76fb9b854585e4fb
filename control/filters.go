package control

// MovingAverage is a fixed window FIR moving average filter.
type MovingAverage struct {
	filterSize int
	x          []float64
	pos        int
	sum        float64
	filled     bool
}

// NewMovingAverage returns a moving average over size samples. Sizes below one are treated as one.
func NewMovingAverage(size int) *MovingAverage {
	if size < 1 {
		size = 1
	}
	f := &MovingAverage{filterSize: size}
	f.Reset()
	return f
}

// Reset clears the window.
func (f *MovingAverage) Reset() {
	f.x = make([]float64, f.filterSize)
	f.pos = 0
	f.sum = 0
	f.filled = false
}

// Next adds a sample and returns the current average.
func (f *MovingAverage) Next(x float64) float64 {
	f.sum += x - f.x[f.pos]
	f.x[f.pos] = x
	f.pos++
	if f.pos == f.filterSize {
		f.pos = 0
		f.filled = true
	}
	if f.filled {
		return f.sum / float64(f.filterSize)
	}
	return f.sum / float64(f.pos)
}
