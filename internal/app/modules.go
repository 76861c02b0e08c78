package app

import (
	"io"

	"github.com/vk/nodeflow/internal/registry"
	"github.com/vk/nodeflow/modules/assign"
	"github.com/vk/nodeflow/modules/delay"
	"github.com/vk/nodeflow/modules/env_vars"
	"github.com/vk/nodeflow/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the nodeflow binary. Printed values go to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&assign.Module{},
		&delay.Module{},
		&env_vars.Module{},
		&print.Module{Out: outW},
	}
}

// NewRegistry returns a registry holding the built-in node kinds.
func NewRegistry(outW io.Writer) *registry.Registry {
	reg := registry.New()
	for _, mod := range coreModules(outW) {
		mod.Register(reg)
	}
	return reg
}
