// Package tributary provides source connectors for extracting data from SaaS
// APIs into line-delimited JSON record streams.
//
// Connectors handle the mechanics that every API extraction needs: OAuth2 and
// API key authentication, cursor and page-number pagination, parent/child
// stream hierarchies with slice caching, incremental state tracking, rate
// limiting and retry with circuit breaker protection.
//
// # Quick Start
//
// Create and run a source through the registry:
//
//	import (
//	    "context"
//	    "github.com/tributary-data/tributary/pkg/config"
//	    "github.com/tributary-data/tributary/pkg/connector/registry"
//	    _ "github.com/tributary-data/tributary/pkg/connector/sources/snapchat"
//	)
//
//	cfg := config.NewBaseConfig("snapchat_marketing", "source")
//	cfg.Security.Credentials["client_id"] = "..."
//	cfg.Security.Credentials["client_secret"] = "..."
//	cfg.Security.Credentials["refresh_token"] = "..."
//	cfg.Security.Credentials["start_date"] = "2021-01-01"
//
//	source, _ := registry.CreateSource("snapchat_marketing", cfg)
//	_ = source.Initialize(context.Background(), cfg)
//	stream, _ := source.Read(context.Background())
//
// # Key Packages
//
//	pkg/connector/core      - Source interface, stream descriptors, state
//	pkg/connector/base      - Shared connector infrastructure
//	pkg/connector/registry  - Connector registration and factories
//	pkg/connector/sources   - The connectors themselves
//	pkg/clients             - HTTP client, OAuth2, rate limiting, breakers
//	pkg/config              - Unified configuration with env substitution
//	pkg/errors              - Structured error handling
//	pkg/logger              - Structured logging
//	pkg/metrics             - Prometheus metrics collection
//
// # Available Connectors
//
//	snapchat_marketing - Snapchat Marketing API (OAuth2, incremental,
//	                     breakdown stats reader)
//	freshchat          - Freshchat API (API key, regional hosts)
//
// # Configuration
//
// All connectors share config.BaseConfig. Connector-specific settings such
// as API keys, regions and sync windows live in Security.Credentials, and
// environment variables are substituted with ${VAR_NAME} syntax. See the
// examples/ directory for complete configuration files.
package tributary
