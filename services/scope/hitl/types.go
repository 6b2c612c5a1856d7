// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package hitl detects human-in-the-loop touch points in a workflow by
// merging three candidate sources: method-name and docstring keywords,
// YAML-declared human_input flags, and flow-level behavioral heuristics.
// Every number it produces is a fixed heuristic for human consumption, not
// a measurement.
package hitl

// InteractionType classifies what a human is asked to do at a point.
type InteractionType string

const (
	TypeInput      InteractionType = "input"
	TypeApproval   InteractionType = "approval"
	TypeReview     InteractionType = "review"
	TypeFeedback   InteractionType = "feedback"
	TypeDecision   InteractionType = "decision"
	TypeValidation InteractionType = "validation"
)

// Urgency classes for a point, inferred from method-name keywords.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Trigger describes when a point fires.
type Trigger struct {
	Condition    string   `json:"condition,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// PointContext carries what the human needs to act at this point.
type PointContext struct {
	DataRequired    []string `json:"data_required,omitempty"`
	PreviousSteps   []string `json:"previous_steps,omitempty"`
	ImpactedSteps   []string `json:"impacted_steps,omitempty"`
	BusinessContext string   `json:"business_context,omitempty"`
	Urgency         Urgency  `json:"urgency"`
}

// UserInterface is the inferred surface the interaction happens through.
type UserInterface struct {
	Channel string   `json:"channel,omitempty"`
	Format  string   `json:"format,omitempty"`
	Options []string `json:"options,omitempty"`
}

// Point is one detected human-in-the-loop touch point. Two candidates
// with the same (Method, Type) pair describe the same point and are
// merged during detection.
type Point struct {
	ID             string          `json:"id"`
	Method         string          `json:"method"`
	Type           InteractionType `json:"type"`
	Trigger        Trigger         `json:"trigger"`
	Blocking       bool            `json:"blocking"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	Fallback       string          `json:"fallback,omitempty"`
	Context        PointContext    `json:"context"`
	UI             UserInterface   `json:"ui"`
	Validation     string          `json:"validation,omitempty"`
}

// Sequence is an ordered chain of dependent points.
type Sequence struct {
	Steps []string `json:"steps"`
}

// ParallelGroup is a set of points sharing an identical dependency set.
type ParallelGroup struct {
	Methods []string `json:"methods"`
}

// Metrics summarizes the workflow's human load. UXScore is a relative
// 0-100 heuristic with no statistical grounding.
type Metrics struct {
	BlockingCount        int     `json:"blocking_count"`
	AvgTimeoutSeconds    float64 `json:"avg_timeout_seconds"`
	CriticalPathFraction float64 `json:"critical_path_fraction"`
	UXScore              float64 `json:"ux_score"`
}

// Workflow aggregates the deduplicated points with derived structure.
type Workflow struct {
	Points         []Point         `json:"points"`
	Sequences      []Sequence      `json:"sequences,omitempty"`
	ParallelGroups []ParallelGroup `json:"parallel_groups,omitempty"`
	Dimensions     []string        `json:"dimensions,omitempty"`
	Metrics        Metrics         `json:"metrics"`
}

// HasHumanTouchPoints reports whether any point was detected.
func (w *Workflow) HasHumanTouchPoints() bool {
	return len(w.Points) > 0
}
