// Package synth generates synthetic UDV grids with injected spike artifacts.
package synth

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// Options controls the generated grid
type Options struct {
	DepthSamples int     // D
	TimeSamples  int     // T
	DepthStepMM  float64 // spacing of the depth axis
	TimeStepS    float64 // spacing of the time axis
	PeakVelocity float64 // centreline velocity of the parabolic profile (mm/s)
	Noise        float64 // standard deviation of additive noise (mm/s)
	SpikeRate    float64 // probability that a column carries a spike span
	SpikeHeight  float64 // magnitude added inside a spike span (mm/s)
	MaxSpikeLen  int     // longest injected span, in samples
	Seed         int64
}

// DefaultOptions returns a grid resembling a pipe-flow acquisition
func DefaultOptions() Options {
	return Options{
		DepthSamples: 100,
		TimeSamples:  200,
		DepthStepMM:  0.74,
		TimeStepS:    0.1,
		PeakVelocity: 120,
		Noise:        2,
		SpikeRate:    0.2,
		SpikeHeight:  600,
		MaxSpikeLen:  3,
		Seed:         1,
	}
}

// Spike records an injected span of corrupted samples
type Spike struct {
	Column int
	Start  int // first corrupted depth row
	Len    int
}

// Generate builds the grid and reports where spikes were injected. Spikes are
// placed clear of the first and last EdgeRows+1 rows.
func Generate(opts Options) (udv.Dataset, []Spike) {
	rng := rand.New(rand.NewSource(opts.Seed))
	d, t := opts.DepthSamples, opts.TimeSamples

	ds := udv.Dataset{
		Time:     make([]float64, t),
		Depth:    make([]float64, d),
		Velocity: mat.NewDense(d, t, nil),
	}
	for i := range ds.Depth {
		ds.Depth[i] = float64(i) * opts.DepthStepMM
	}
	for j := range ds.Time {
		ds.Time[j] = float64(j) * opts.TimeStepS
	}

	for i := 0; i < d; i++ {
		// parabolic profile across the channel, zero at both walls
		r := 2*float64(i)/math.Max(float64(d-1), 1) - 1
		base := opts.PeakVelocity * (1 - r*r)
		for j := 0; j < t; j++ {
			ds.Velocity.Set(i, j, base+opts.Noise*rng.NormFloat64())
		}
	}

	var spikes []Spike
	margin := udv.EdgeRows + 1
	usable := d - 2*margin - opts.MaxSpikeLen
	if usable <= 0 || opts.MaxSpikeLen < 1 {
		return ds, spikes
	}
	for j := 0; j < t; j++ {
		if rng.Float64() >= opts.SpikeRate {
			continue
		}
		s := Spike{
			Column: j,
			Start:  margin + rng.Intn(usable),
			Len:    1 + rng.Intn(opts.MaxSpikeLen),
		}
		sign := 1.0
		if rng.Intn(2) == 0 {
			sign = -1
		}
		for i := s.Start; i < s.Start+s.Len; i++ {
			ds.Velocity.Set(i, j, ds.Velocity.At(i, j)+sign*opts.SpikeHeight)
		}
		spikes = append(spikes, s)
	}
	return ds, spikes
}
