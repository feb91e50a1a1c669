package snapchat

import (
	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/connector/registry"
)

func init() {
	// Register Snapchat Marketing source connector in the global registry
	registry.RegisterSource("snapchat_marketing", func(cfg *config.BaseConfig) (core.Source, error) {
		return NewSnapchatSource("snapchat_marketing", cfg)
	})
}
