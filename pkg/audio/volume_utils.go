package audio

import "math"

// volumeToPower maps a linear 0..1 volume to the base-2 exponent used by effects.Volume.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10 // Silent
	}
	return math.Log2(vol)
}
