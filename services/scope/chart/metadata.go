// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chart

// BuildMetadata computes the structured summary for an input model.
//
// Complexity is a heuristic score over five binary conditions (router
// count >2, HITL count >3, integration count >5, parallel paths >1,
// method count >10), capped at 4 and mapped onto the four classes. The
// duration estimate is purely additive and deliberately uncapped here;
// the discovery layer applies its own ceiling.
func BuildMetadata(in Input) Metadata {
	counts := countInput(in)

	score := 0
	if counts.Routers > 2 {
		score++
	}
	if counts.HITLPoints > 3 {
		score++
	}
	if counts.Integrations > 5 {
		score++
	}
	if counts.ParallelPaths > 1 {
		score++
	}
	if counts.Methods > 10 {
		score++
	}
	if score > 4 {
		score = 4
	}

	return Metadata{
		Complexity:      complexityClass(score),
		ComplexityScore: score,
		EstimatedDurationSeconds: durationBase +
			durationPerCrew*counts.Crews +
			durationPerHITLPoint*counts.HITLPoints +
			durationPerIntegration*counts.Integrations +
			durationPerRouter*counts.Routers,
		CriticalPath: criticalPath(in),
		Counts:       counts,
	}
}

func countInput(in Input) Counts {
	counts := Counts{
		Routers:       len(in.Routers),
		ParallelPaths: len(in.ParallelGroups),
	}
	if in.Flow != nil {
		counts.Methods = len(in.Flow.Class.Methods)
		counts.Crews = in.Flow.Behavioral.CrewCount
	}
	if in.Crew != nil {
		counts.Crews += len(in.Crew.CrewDefinitions)
	}
	if in.HITL != nil {
		counts.HITLPoints = len(in.HITL.Points)
	}
	if in.Integrations != nil {
		counts.Integrations = len(in.Integrations.Points)
	}
	return counts
}

func complexityClass(score int) Complexity {
	switch {
	case score == 0:
		return ComplexitySimple
	case score == 1:
		return ComplexityModerate
	case score == 2:
		return ComplexityComplex
	default:
		return ComplexityAdvanced
	}
}

// criticalPath is the longest enumerated path sequence.
func criticalPath(in Input) []string {
	var longest []string
	for _, seq := range in.Sequences {
		if len(seq.Steps) > len(longest) {
			longest = seq.Steps
		}
	}
	return longest
}
