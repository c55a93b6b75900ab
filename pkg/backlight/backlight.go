// Package backlight controls display brightness through the kernel's sysfs
// backlight class, with optional smooth stepping between levels.
package backlight

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SysfsRoot is where the kernel's backlight class lives. Overridable for
// containers that mount sysfs elsewhere and for tests.
var SysfsRoot = "/sys/class/backlight"

// Device is one sysfs backlight device.
type Device struct {
	Name string
	dir  string
	max  int
}

// List returns the names of all backlight devices the kernel exposes.
func List() ([]string, error) {
	entries, err := os.ReadDir(SysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SysfsRoot, err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Open opens the named backlight device. An empty name picks the first device
// the kernel lists.
func Open(name string) (*Device, error) {
	if name == "" {
		names, err := List()
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no backlight devices in %s", SysfsRoot)
		}
		name = names[0]
	}

	dir := filepath.Join(SysfsRoot, name)
	max, err := readInt(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("failed to read max brightness of %s: %w", name, err)
	}

	return &Device{Name: name, dir: dir, max: max}, nil
}

// Max returns the device's raw brightness ceiling.
func (d *Device) Max() int { return d.max }

// Get returns the current raw brightness.
func (d *Device) Get() (int, error) {
	return readInt(filepath.Join(d.dir, "brightness"))
}

// Percent returns the current brightness as a fraction of the maximum, in
// [0,1].
func (d *Device) Percent() (float64, error) {
	cur, err := d.Get()
	if err != nil {
		return 0, err
	}
	return float64(cur) / float64(d.max), nil
}

// Set writes a raw brightness value, clamped to [0, Max].
func (d *Device) Set(raw int) error {
	if raw < 0 {
		raw = 0
	}
	if raw > d.max {
		raw = d.max
	}
	path := filepath.Join(d.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(raw)), 0644); err != nil {
		return fmt.Errorf("failed to set brightness of %s: %w", d.Name, err)
	}
	return nil
}

// SetPercent sets brightness as a fraction of the maximum, in [0,1].
func (d *Device) SetPercent(pct float64) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return d.Set(int(pct*float64(d.max) + 0.5))
}

// SetSmooth walks the brightness toward target in fixed raw steps, sleeping
// interval between writes. It blocks until the target is reached. A step of
// zero or less degrades to a single immediate write.
func (d *Device) SetSmooth(target, step int, interval time.Duration) error {
	if target < 0 {
		target = 0
	}
	if target > d.max {
		target = d.max
	}
	if step <= 0 {
		return d.Set(target)
	}

	cur, err := d.Get()
	if err != nil {
		return err
	}

	for cur != target {
		if cur < target {
			cur += step
			if cur > target {
				cur = target
			}
		} else {
			cur -= step
			if cur < target {
				cur = target
			}
		}
		if err := d.Set(cur); err != nil {
			return err
		}
		if cur != target && interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
