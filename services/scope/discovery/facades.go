// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import "context"

// AgentDiscoverer narrows a full discovery run to agent entities.
type AgentDiscoverer struct {
	inner *Discoverer
}

// NewAgentDiscoverer creates an agent-only discovery facade.
func NewAgentDiscoverer(opts Options, discOpts ...DiscovererOption) (*AgentDiscoverer, error) {
	d, err := New(opts, discOpts...)
	if err != nil {
		return nil, err
	}
	return &AgentDiscoverer{inner: d}, nil
}

// Discover returns only the agent entities of a full scan. Stats still
// describe the whole run.
func (a *AgentDiscoverer) Discover(ctx context.Context) (*Result, error) {
	return filterDiscovery(ctx, a.inner, EntityAgent)
}

// TeamDiscoverer narrows a full discovery run to crew entities.
type TeamDiscoverer struct {
	inner *Discoverer
}

// NewTeamDiscoverer creates a crew-only discovery facade.
func NewTeamDiscoverer(opts Options, discOpts ...DiscovererOption) (*TeamDiscoverer, error) {
	d, err := New(opts, discOpts...)
	if err != nil {
		return nil, err
	}
	return &TeamDiscoverer{inner: d}, nil
}

// Discover returns only the crew entities of a full scan.
func (t *TeamDiscoverer) Discover(ctx context.Context) (*Result, error) {
	return filterDiscovery(ctx, t.inner, EntityCrew)
}

// FlowDiscoverer narrows a full discovery run to flow entities, the
// richest record type.
type FlowDiscoverer struct {
	inner *Discoverer
}

// NewFlowDiscoverer creates a flow-only discovery facade.
func NewFlowDiscoverer(opts Options, discOpts ...DiscovererOption) (*FlowDiscoverer, error) {
	d, err := New(opts, discOpts...)
	if err != nil {
		return nil, err
	}
	return &FlowDiscoverer{inner: d}, nil
}

// Discover returns only the flow entities of a full scan.
func (f *FlowDiscoverer) Discover(ctx context.Context) (*Result, error) {
	return filterDiscovery(ctx, f.inner, EntityFlow)
}

func filterDiscovery(ctx context.Context, d *Discoverer, t EntityType) (*Result, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	result.Entities = result.ByType(t)
	return result, nil
}
