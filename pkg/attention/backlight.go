package attention

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SysfsRoot is where Linux exposes backlight devices.
const SysfsRoot = "/sys/class/backlight"

// ErrNoBacklight is returned when no backlight device can be found.
var ErrNoBacklight = errors.New("attention: no backlight device")

// Sysfs controls a Linux backlight through
// /sys/class/backlight/<dev>/brightness.
type Sysfs struct {
	dir string
	max int
}

// NewSysfs opens the named device under root. An empty device picks the
// first one in name order.
func NewSysfs(root, device string) (*Sysfs, error) {
	if root == "" {
		root = SysfsRoot
	}
	if device == "" {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoBacklight, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		if len(names) == 0 {
			return nil, ErrNoBacklight
		}
		device = names[0]
	}

	dir := filepath.Join(root, device)
	limit, err := readInt(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoBacklight, device, err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %s: max_brightness is %d", ErrNoBacklight, device, limit)
	}
	return &Sysfs{dir: dir, max: limit}, nil
}

// Percent returns the current brightness in percent.
func (s *Sysfs) Percent() (int, error) {
	raw, err := readInt(filepath.Join(s.dir, "brightness"))
	if err != nil {
		return 0, err
	}
	return raw * 100 / s.max, nil
}

// Adjust changes the brightness by delta percent of max_brightness.
func (s *Sysfs) Adjust(delta int) (int, error) {
	path := filepath.Join(s.dir, "brightness")
	raw, err := readInt(path)
	if err != nil {
		return 0, err
	}
	raw = clamp(raw+delta*s.max/100, 0, s.max)
	if err := os.WriteFile(path, []byte(strconv.Itoa(raw)), 0o644); err != nil {
		return 0, fmt.Errorf("write brightness: %w", err)
	}
	return raw * 100 / s.max, nil
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// DryRun pretends to be a backlight and logs what it would do.
type DryRun struct {
	level  int
	logger *slog.Logger
}

// NewDryRun starts at the given level in percent.
func NewDryRun(level int, logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{level: clamp(level, 0, 100), logger: logger}
}

// Adjust records the change.
func (d *DryRun) Adjust(delta int) (int, error) {
	d.level = clamp(d.level+delta, 0, 100)
	d.logger.Info("dry-run brightness", "delta", delta, "level", d.level)
	return d.level, nil
}
