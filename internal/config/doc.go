// Package config holds the runtime configuration for ownergraph: API
// access, crawl caps, the crawl deadline, report output, and storage
// locations. Settings come from defaults, an optional .ownergraph YAML
// file, and CLI flags, in that order of precedence.
package config
