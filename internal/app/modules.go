package app

import (
	"github.com/vk/cytograph/internal/registry"
	"github.com/vk/cytograph/methods/boolgate"
	"github.com/vk/cytograph/methods/quantile"
	"github.com/vk/cytograph/methods/refgate"
	"github.com/vk/cytograph/methods/standardize"
	"github.com/vk/cytograph/methods/threshold"
)

// coreModules is the definitive list of all method modules that are
// compiled into the cytograph binary.
var coreModules = []registry.Module{
	&threshold.Module{},
	&quantile.Module{},
	&boolgate.Module{},
	&refgate.Module{},
	&standardize.Module{},
}
