// Package arch holds the target capability tables: per-architecture limits
// the layout and copy layers consult when validating swizzles and bulk-copy
// descriptors. The tables are embedded, parsed once, and immutable.
package arch

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed targets.yaml
var rawTargets []byte

// Target describes one accelerator architecture.
type Target struct {
	Name            string `yaml:"name"`
	SharedMemBytes  int    `yaml:"shared_mem_bytes"`
	Banks           int    `yaml:"banks"`
	BankWidthBytes  int    `yaml:"bank_width_bytes"`
	MaxSwizzleBytes int    `yaml:"max_swizzle_bytes"`
	ClusterSize     int    `yaml:"cluster_size"`
	BulkCopyAlign   int    `yaml:"bulk_copy_align"`
	MaxBulkRank     int    `yaml:"max_bulk_rank"`
}

// BankRowBytes returns the bytes covered by one full sweep of the banks.
func (t Target) BankRowBytes() int {
	return t.Banks * t.BankWidthBytes
}

type registry struct {
	targets map[string]Target
	def     string
}

var (
	loadOnce sync.Once
	loaded   registry
)

func load() registry {
	loadOnce.Do(func() {
		var doc struct {
			Default string   `yaml:"default"`
			Targets []Target `yaml:"targets"`
		}
		if err := yaml.Unmarshal(rawTargets, &doc); err != nil {
			panic(fmt.Sprintf("arch: embedded target table is malformed: %v", err))
		}
		m := make(map[string]Target, len(doc.Targets))
		for _, t := range doc.Targets {
			m[t.Name] = t
		}
		if _, ok := m[doc.Default]; !ok {
			panic(fmt.Sprintf("arch: default target %q missing from table", doc.Default))
		}
		loaded = registry{targets: m, def: doc.Default}
	})
	return loaded
}

// Lookup returns the named target.
func Lookup(name string) (Target, bool) {
	t, ok := load().targets[name]
	return t, ok
}

// Default returns the default target.
func Default() Target {
	r := load()
	return r.targets[r.def]
}

// Names returns all known target names.
func Names() []string {
	r := load()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	return names
}
