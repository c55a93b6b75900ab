//go:build !linux

package backlight

import "fmt"

// Panel is a stub on platforms without the GPIO character device.
type Panel struct{}

func OpenPanel(chipName string, offset int) (*Panel, error) {
	return nil, fmt.Errorf("panel GPIO control not available on this platform")
}

func (p *Panel) PowerOn() error  { return nil }
func (p *Panel) PowerOff() error { return nil }
func (p *Panel) Close()          {}
