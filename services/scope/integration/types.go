// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package integration inventories a workflow's external service touch
// points and attaches reliability/security estimates to them.
//
// Every reliability and security number here is a heuristic default keyed
// by service-name substring match, not a measurement. Consumers must treat
// them as starting points for review, never as observed figures.
package integration

// Type classifies what kind of external system an integration talks to.
type Type string

const (
	TypeAPI        Type = "api"
	TypeDatabase   Type = "database"
	TypeFileSystem Type = "file_system"
	TypeMessaging  Type = "messaging"
	TypeStorage    Type = "storage"
	TypeAuth       Type = "auth"
	TypeMonitoring Type = "monitoring"
)

// CRUDClass tags an operation's data effect.
type CRUDClass string

const (
	CRUDCreate CRUDClass = "create"
	CRUDRead   CRUDClass = "read"
	CRUDUpdate CRUDClass = "update"
	CRUDDelete CRUDClass = "delete"
)

// Criticality grades how much the workflow depends on an operation.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Operation is one interaction a workflow performs against a service.
type Operation struct {
	Name        string      `json:"name"`
	CRUD        CRUDClass   `json:"crud"`
	Frequency   string      `json:"frequency,omitempty"`
	Criticality Criticality `json:"criticality"`
}

// Config captures what the integration needs to run.
type Config struct {
	EnvVars        []string `json:"env_vars,omitempty"`
	Endpoints      []string `json:"endpoints,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	RetryPolicy    string   `json:"retry_policy,omitempty"`
	RateLimit      string   `json:"rate_limit,omitempty"`
}

// Dependency is a service-to-service requirement.
type Dependency struct {
	Service  string `json:"service"`
	Required bool   `json:"required"`
	Fallback string `json:"fallback,omitempty"`
}

// Reliability is the heuristic availability estimate for a service.
// Availability is 0-1; ResponseTimeMillis is a rough expectation.
type Reliability struct {
	Availability       float64     `json:"availability"`
	ErrorRate          float64     `json:"error_rate"`
	ResponseTimeMillis int         `json:"response_time_ms"`
	FailureImpact      Criticality `json:"failure_impact"`
	RequiresMonitoring bool        `json:"requires_monitoring"`
}

// Security is the heuristic security posture estimate for a service.
type Security struct {
	AuthMethod         string   `json:"auth_method"`
	DataClassification string   `json:"data_classification"`
	Encrypted          bool     `json:"encrypted"`
	Audited            bool     `json:"audited"`
	ComplianceTags     []string `json:"compliance_tags,omitempty"`
}

// Point is one deduplicated external integration.
type Point struct {
	ID           string       `json:"id"`
	Service      string       `json:"service"`
	Type         Type         `json:"type"`
	Operations   []Operation  `json:"operations,omitempty"`
	Config       Config       `json:"config"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Reliability  Reliability  `json:"reliability"`
	Security     Security     `json:"security"`
}

// Risk categories derived from the point inventory.
type Risks struct {
	SinglePointsOfFailure []string `json:"single_points_of_failure,omitempty"`
	MissingAuth           []string `json:"missing_auth,omitempty"`
	Performance           []string `json:"performance,omitempty"`
}

// Analysis is the full integration inventory for one workflow.
type Analysis struct {
	Points          []Point  `json:"points"`
	Risks           Risks    `json:"risks"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// HasIntegrations reports whether any external touch point was found.
func (a *Analysis) HasIntegrations() bool {
	return len(a.Points) > 0
}
