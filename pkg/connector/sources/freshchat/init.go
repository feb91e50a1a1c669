package freshchat

import (
	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/connector/registry"
)

func init() {
	// Register Freshchat source connector in the global registry
	registry.RegisterSource("freshchat", func(cfg *config.BaseConfig) (core.Source, error) {
		return NewFreshchatSource("freshchat", cfg)
	})
}
