package config

import (
	"fmt"
	"time"
)

// DatasetConfig names the Socrata dataset ids to query.
// Empty fields fall back to the published NYC dataset ids. Overriding
// these is mostly useful against a mirror or a test fixture server.
type DatasetConfig struct {
	// Registrations is the multiple-dwelling registrations dataset id.
	Registrations string `yaml:"registrations,omitempty"`

	// Contacts is the registration contacts dataset id.
	Contacts string `yaml:"contacts,omitempty"`

	// Pluto is the PLUTO tax-lot dataset id.
	Pluto string `yaml:"pluto,omitempty"`
}

// CrawlFileConfig holds crawl settings from the configuration file.
// Zero values mean "use the default"; the file only needs to name what
// it wants to change.
type CrawlFileConfig struct {
	// MaxDepth overrides the number of crawl expansion rounds.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// PropertyTasksPerRound overrides the per-round property lookup cap.
	PropertyTasksPerRound int `yaml:"propertyTasksPerRound,omitempty"`

	// NameTasksPerRound overrides the per-round name search cap.
	NameTasksPerRound int `yaml:"nameTasksPerRound,omitempty"`

	// SharedAddressesPerName overrides the shared-address expansion cap.
	SharedAddressesPerName int `yaml:"sharedAddressesPerName,omitempty"`

	// RegistrationBatchSize overrides the batched lookup chunk size.
	RegistrationBatchSize int `yaml:"registrationBatchSize,omitempty"`

	// Deadline bounds one crawl's wall-clock time, as a Go duration
	// string ("90s", "2m"). Empty means the default; "0" disables it.
	Deadline string `yaml:"deadline,omitempty"`
}

// File represents the structure of the .ownergraph configuration file.
type File struct {
	// AppToken is the Socrata application token.
	AppToken string `yaml:"appToken,omitempty"`

	// BaseURL overrides the open-data host.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Datasets overrides individual dataset ids.
	Datasets DatasetConfig `yaml:"datasets,omitempty"`

	// Crawl overrides crawl caps and the deadline.
	Crawl CrawlFileConfig `yaml:"crawl,omitempty"`
}

// ApplyTo merges the file's settings into cfg. Only values the file
// actually sets are applied, so CLI flags processed afterwards still
// win and defaults survive an empty file.
func (f *File) ApplyTo(cfg *Config) error {
	if f.AppToken != "" {
		cfg.AppToken = f.AppToken
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}

	if f.Crawl.MaxDepth > 0 {
		cfg.MaxDepth = f.Crawl.MaxDepth
	}
	if f.Crawl.PropertyTasksPerRound > 0 {
		cfg.PropertyTasksPerRound = f.Crawl.PropertyTasksPerRound
	}
	if f.Crawl.NameTasksPerRound > 0 {
		cfg.NameTasksPerRound = f.Crawl.NameTasksPerRound
	}
	if f.Crawl.SharedAddressesPerName > 0 {
		cfg.SharedAddressesPerName = f.Crawl.SharedAddressesPerName
	}
	if f.Crawl.RegistrationBatchSize > 0 {
		cfg.RegistrationBatchSize = f.Crawl.RegistrationBatchSize
	}
	if f.Crawl.Deadline != "" {
		d, err := time.ParseDuration(f.Crawl.Deadline)
		if err != nil {
			return fmt.Errorf("invalid crawl deadline %q: %w", f.Crawl.Deadline, err)
		}
		cfg.Deadline = d
	}

	return nil
}
