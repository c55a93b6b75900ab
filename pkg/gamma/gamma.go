// Package gamma converts between display color temperatures and RGB channel
// gains, and builds the gamma ramps a display backend applies per CRTC.
//
// The channel curves use the Tanner Helland fits with the improved
// coefficients from zombieprototypes.com.
package gamma

import (
	"fmt"
	"math"
	"sync"
)

const (
	// MinTemperature and MaxTemperature bound the accepted kelvin range.
	MinTemperature = 1000
	MaxTemperature = 10000

	// Neutral is the temperature at which all three channels are fully open.
	Neutral = 6500
)

// RGB holds the 0-255 channel gains for one color temperature.
type RGB struct {
	R, G, B uint8
}

func clamp(x, max float64) float64 {
	if x > max {
		return max
	}
	return x
}

func red(temp int) int {
	if temp <= 6500 {
		return 255
	}
	const (
		a = 351.97690566805693
		b = 0.114206453784165
		c = -40.25366309332127
	)
	t := float64(temp)/100 - 55
	return int(clamp(a+b*t+c*math.Log(t), 255))
}

func green(temp int) int {
	var a, b, c, t float64
	if temp <= 6500 {
		a = -155.25485562709179
		b = -0.44596950469579133
		c = 104.49216199393888
		t = float64(temp)/100 - 2
	} else {
		a = 325.4494125711974
		b = 0.07943456536662342
		c = -28.0852963507957
		t = float64(temp)/100 - 50
	}
	return int(clamp(a+b*t+c*math.Log(t), 255))
}

func blue(temp int) int {
	if temp <= 1900 {
		return 0
	}
	if temp < 6500 {
		const (
			a = -254.76935184120902
			b = 0.8274096064007395
			c = 115.67994401066147
		)
		t := float64(temp)/100 - 10
		return int(clamp(a+b*t+c*math.Log(t), 255))
	}
	return 255
}

// FromTemperature returns the channel gains for a color temperature in
// kelvin.
func FromTemperature(temp int) RGB {
	return RGB{
		R: uint8(red(temp)),
		G: uint8(green(temp)),
		B: uint8(blue(temp)),
	}
}

// Temperature recovers the color temperature whose red and blue gains match
// the given ones, by bisecting the temperature range. Results snap to 50K
// steps when an equivalent stepped value produces the same gains.
func Temperature(r, b uint8) int {
	minTemp, maxTemp := MinTemperature, Neutral
	if b == 255 {
		minTemp = Neutral
	}
	if r != 255 {
		maxTemp = MaxTemperature
	}

	var temp int
	for i := 0; i < 64; i++ {
		temp = (maxTemp + minTemp) / 2
		testR, testB := red(temp), blue(temp)
		if testR == int(r) && testB == int(b) {
			break
		}
		if float64(testB)/float64(testR) > float64(b)/float64(r) {
			maxTemp = temp
		} else {
			minTemp = temp
		}
	}

	// Prefer a round 50K value when it maps to the same channel gains.
	if temp%50 != 0 {
		stepped := temp - temp%50
		if red(stepped) == int(r) && blue(stepped) == int(b) {
			return stepped
		}
		stepped = temp + 50 - temp%50
		if red(stepped) == int(r) && blue(stepped) == int(b) {
			return stepped
		}
	}
	return temp
}

// Ramp builds the 16-bit gamma ramp of the given size for a color
// temperature: a linear ramp scaled per channel by the temperature's gains.
func Ramp(size, temp int) (r, g, b []uint16) {
	gains := FromTemperature(temp)
	rf := float64(gains.R) / 255
	gf := float64(gains.G) / 255
	bf := float64(gains.B) / 255

	r = make([]uint16, size)
	g = make([]uint16, size)
	b = make([]uint16, size)
	for j := 0; j < size; j++ {
		v := 65535.0 * float64(j) / float64(size)
		r[j] = uint16(v * rf)
		g[j] = uint16(v * gf)
		b[j] = uint16(v * bf)
	}
	return r, g, b
}

// Output applies color temperatures to an actual display. Display-server
// backends (XRandR, wlroots, DRM) live outside this package.
type Output interface {
	Set(temp int) error
	Get() (int, error)
}

// Memory is a process-local Output that records the last applied temperature.
// It backs the daemon when no display backend is wired in, keeping Set/Get
// round-trips consistent.
type Memory struct {
	mu   sync.Mutex
	temp int
}

func NewMemory() *Memory {
	return &Memory{temp: Neutral}
}

func (m *Memory) Set(temp int) error {
	if temp < MinTemperature || temp > MaxTemperature {
		return fmt.Errorf("temperature %dK out of range [%d,%d]", temp, MinTemperature, MaxTemperature)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temp = temp
	return nil
}

func (m *Memory) Get() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temp, nil
}
