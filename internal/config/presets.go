package config

import (
	"fmt"
	"sort"
)

const DefaultPreset = "directory"

var presets = map[string]func() Config{
	// Plain directory copies keep the tree and skip dotfiles.
	"directory": func() Config {
		return base("directory", "path", false, "10%", "0")
	},
	"directory-flat": func() Config {
		c := base("directory-flat", "basename", false, "10%", "0")
		c.Copy.Method = CopyNative
		return c
	},
	// Containers are sized exactly, so they get no margin but a fixed
	// allowance for filesystem metadata inside the volume.
	"container": func() Config {
		c := base("container", "path", true, "0%", "256MiB")
		c.Container.Enabled = true
		return c
	},
	"container-flat": func() Config {
		c := base("container-flat", "basename", true, "0%", "256MiB")
		c.Container.Enabled = true
		c.Copy.Method = CopyNative
		return c
	},
}

func base(name, mode string, includeHidden bool, margin, overhead string) Config {
	return Config{
		Preset: name,
		Fingerprint: FingerprintConfig{
			Mode:          mode,
			IncludeHidden: includeHidden,
		},
		Capacity: CapacityConfig{
			Margin:   margin,
			Overhead: overhead,
		},
		Copy: CopyConfig{
			Method:      CopyRsync,
			RsyncBinary: "rsync",
		},
		Container: ContainerConfig{
			Filesystem:     "exfat",
			AllocationUnit: "1MiB",
			Binary:         "veracrypt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (Config, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return p(), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
