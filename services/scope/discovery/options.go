// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DedupPolicy selects which definition wins when an entity name appears
// both in code and in YAML configuration. The historical behavior was
// inconsistent across call sites, so the policy is explicit and
// configurable; PreferCode is the documented default.
type DedupPolicy string

const (
	// PreferCode keeps the code-defined entity on a name collision.
	PreferCode DedupPolicy = "prefer_code"
	// PreferYAML keeps the YAML-defined entity on a name collision;
	// adapters that want the richer declarative data opt into this.
	PreferYAML DedupPolicy = "prefer_yaml"
)

// MaxTimeoutMillis is the ceiling applied to estimated execution
// timeouts at the discovery layer.
const MaxTimeoutMillis int64 = 900000

// Options configures a discovery run.
type Options struct {
	// Root is the project directory to scan.
	Root string `validate:"required"`

	// MaxFileSize bounds per-file reads in bytes. Zero keeps the parser
	// default.
	MaxFileSize int64 `validate:"gte=0"`

	// Dedup is the name-collision precedence policy.
	Dedup DedupPolicy `validate:"oneof=prefer_code prefer_yaml"`

	// IncludeReports renders the Markdown report per entity. Charts are
	// always rendered; the report is larger and optional.
	IncludeReports bool
}

var validate = validator.New()

// DefaultOptions returns the documented defaults for a root directory.
func DefaultOptions(root string) Options {
	return Options{
		Root:           root,
		Dedup:          PreferCode,
		IncludeReports: true,
	}
}

// Validate checks the options against their constraints.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid discovery options: %w", err)
	}
	return nil
}
