package glow

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/nhle/notiglow/internal/model"
)

// DefaultPeriod is the number of animation frames in one pulse.
const DefaultPeriod = 40

// minIntensity keeps the glow visible at the bottom of the pulse.
const minIntensity = 0.35

// Intensity returns the pulse brightness in [minIntensity, 1] for frame.
func Intensity(frame, period int) float64 {
	if period <= 0 {
		period = DefaultPeriod
	}
	phase := float64(frame%period) / float64(period)
	wave := 0.5 + 0.5*math.Sin(2*math.Pi*phase)
	return minIntensity + (1-minIntensity)*wave
}

// Pulse returns color dimmed toward black for the given frame.
func Pulse(color model.RGB, frame, period int) model.RGB {
	black := colorful.Color{}
	return model.RGBFromColorful(black.BlendLab(color.Colorful(), Intensity(frame, period)))
}
