//go:build linux

package backlight

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Panel drives a display's power-enable GPIO line on boards where the
// backlight supply is switched by a GPIO rather than a sysfs knob.
type Panel struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// OpenPanel requests the enable line at offset on the named GPIO chip. The
// line is driven high (panel on) immediately.
func OpenPanel(chipName string, offset int) (*Panel, error) {
	c, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open chip: %w", err)
	}

	line, err := c.RequestLine(offset, gpiocdev.AsOutput(1))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to request panel enable line: %w", err)
	}

	return &Panel{chip: c, line: line}, nil
}

func (p *Panel) PowerOn() error { return p.line.SetValue(1) }

func (p *Panel) PowerOff() error { return p.line.SetValue(0) }

// Close releases the line and the chip. The line keeps its last driven value.
func (p *Panel) Close() {
	p.line.Close()
	p.chip.Close()
}
