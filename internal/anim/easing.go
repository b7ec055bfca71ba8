package anim

import "math"

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// EasingByName resolves the easing names used by zoom events. Unknown
// names fall back to easeInOut.
func EasingByName(name string) Easing {
	switch name {
	case "linear":
		return Linear
	case "easeIn", "ease-in":
		return EaseInCubic
	case "easeOut", "ease-out":
		return EaseOutCubic
	default:
		return EaseInOutCubic
	}
}

func Linear(t float64) float64 {
	return clamp01(t)
}

func EaseInCubic(t float64) float64 {
	t = clamp01(t)
	return t * t * t
}

func EaseOutCubic(t float64) float64 {
	t = clamp01(t)
	return 1 - math.Pow(1-t, 3)
}

// EaseInOutCubic applies smooth easing function
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Lerp performs linear interpolation between a and b
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Progress returns how far elapsed is into a span of length total.
// A non-positive total is already complete.
func Progress(elapsed, total float64) float64 {
	if total <= 0 {
		return 1
	}
	return clamp01(elapsed / total)
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
