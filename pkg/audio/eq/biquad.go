// ABOUTME: Peaking biquad filter section
// ABOUTME: RBJ cookbook coefficients with per-channel direct form I state
package eq

import "math"

type coefficients struct {
	b0, b1, b2, a1, a2 float32
}

var unity = coefficients{b0: 1}

// peaking returns cookbook peaking-EQ coefficients. Near-zero gain is unity.
func peaking(sampleRate, freq, gainDB, q float64) coefficients {
	if math.Abs(gainDB) < 0.001 {
		return unity
	}
	a := math.Pow(10, gainDB/40)
	omega := 2 * math.Pi * freq / sampleRate
	sin, cos := math.Sincos(omega)
	alpha := sin / (2 * q)

	a0 := 1 + alpha/a
	return coefficients{
		b0: float32((1 + alpha*a) / a0),
		b1: float32(-2 * cos / a0),
		b2: float32((1 - alpha*a) / a0),
		a1: float32(-2 * cos / a0),
		a2: float32((1 - alpha/a) / a0),
	}
}

type biquadState struct {
	x1, x2, y1, y2 float32
}

func (s *biquadState) process(x float32, c *coefficients) float32 {
	y := c.b0*x + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}
