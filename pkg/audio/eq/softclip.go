// ABOUTME: Soft clipper with a tabulated tanh knee
// ABOUTME: Identity below 0.95, smooth and strictly below full scale above
package eq

import "math"

const (
	kneeStart = 0.95
	kneeEnd   = 1.55
	kneeSize  = 4096
)

var kneeTable [kneeSize + 1]float32

func init() {
	for i := range kneeTable {
		x := kneeStart + (kneeEnd-kneeStart)*float64(i)/kneeSize
		kneeTable[i] = float32(kneeStart + 0.05*math.Tanh((x-kneeStart)/0.05*0.5))
	}
}

// SoftClip limits x to (-1, 1) with a smooth knee. NaN maps to silence and
// infinities to the knee ceiling.
func SoftClip(x float32) float32 {
	if x != x {
		return 0
	}
	a := x
	if a < 0 {
		a = -a
	}
	if a < kneeStart {
		return x
	}

	var y float32
	if a >= kneeEnd {
		y = kneeTable[kneeSize]
	} else {
		pos := (a - kneeStart) / (kneeEnd - kneeStart) * kneeSize
		i := int(pos)
		if i < 0 {
			i = 0
		}
		if i >= kneeSize {
			i = kneeSize - 1
		}
		frac := pos - float32(i)
		y = kneeTable[i] + (kneeTable[i+1]-kneeTable[i])*frac
	}

	if x < 0 {
		return -y
	}
	return y
}
