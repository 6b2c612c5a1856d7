// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package integration

import "strings"

// Profile is a heuristic reliability/security default for services whose
// lowercased name contains Match. Profiles are checked in order; the first
// hit wins. These tables are the least-grounded part of the model, which
// is exactly why they are injectable via WithProfiles rather than baked
// into the analyzer.
type Profile struct {
	Match       string
	Type        Type
	Reliability Reliability
	Security    Security
}

// DefaultProfiles returns the built-in substring-keyed heuristic table.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Match: "aws",
			Type:  TypeStorage,
			Reliability: Reliability{
				Availability: 0.999, ErrorRate: 0.001, ResponseTimeMillis: 200,
				FailureImpact: CriticalityHigh, RequiresMonitoring: true,
			},
			Security: Security{
				AuthMethod: "iam", DataClassification: "internal",
				Encrypted: true, Audited: true, ComplianceTags: []string{"SOC2"},
			},
		},
		{
			Match: "openai",
			Type:  TypeAPI,
			Reliability: Reliability{
				Availability: 0.99, ErrorRate: 0.01, ResponseTimeMillis: 2000,
				FailureImpact: CriticalityCritical, RequiresMonitoring: true,
			},
			Security: Security{
				AuthMethod: "api_key", DataClassification: "confidential",
				Encrypted: true,
			},
		},
		{
			Match: "anthropic",
			Type:  TypeAPI,
			Reliability: Reliability{
				Availability: 0.99, ErrorRate: 0.01, ResponseTimeMillis: 2000,
				FailureImpact: CriticalityCritical, RequiresMonitoring: true,
			},
			Security: Security{
				AuthMethod: "api_key", DataClassification: "confidential",
				Encrypted: true,
			},
		},
		{
			Match: "database",
			Type:  TypeDatabase,
			Reliability: Reliability{
				Availability: 0.995, ErrorRate: 0.005, ResponseTimeMillis: 50,
				FailureImpact: CriticalityCritical, RequiresMonitoring: true,
			},
			Security: Security{
				AuthMethod: "password", DataClassification: "confidential",
				Encrypted: true, Audited: true,
			},
		},
		{
			Match: "postgres",
			Type:  TypeDatabase,
			Reliability: Reliability{
				Availability: 0.995, ErrorRate: 0.005, ResponseTimeMillis: 50,
				FailureImpact: CriticalityCritical, RequiresMonitoring: true,
			},
			Security: Security{
				AuthMethod: "password", DataClassification: "confidential",
				Encrypted: true, Audited: true,
			},
		},
		{
			Match: "smtp",
			Type:  TypeMessaging,
			Reliability: Reliability{
				Availability: 0.98, ErrorRate: 0.02, ResponseTimeMillis: 1000,
				FailureImpact: CriticalityMedium, RequiresMonitoring: false,
			},
			Security: Security{
				AuthMethod: "password", DataClassification: "internal",
				Encrypted: true,
			},
		},
		{
			Match: "slack",
			Type:  TypeMessaging,
			Reliability: Reliability{
				Availability: 0.99, ErrorRate: 0.01, ResponseTimeMillis: 500,
				FailureImpact: CriticalityLow, RequiresMonitoring: false,
			},
			Security: Security{
				AuthMethod: "oauth", DataClassification: "internal",
				Encrypted: true,
			},
		},
		{
			Match: "serper",
			Type:  TypeAPI,
			Reliability: Reliability{
				Availability: 0.99, ErrorRate: 0.01, ResponseTimeMillis: 800,
				FailureImpact: CriticalityMedium, RequiresMonitoring: false,
			},
			Security: Security{
				AuthMethod: "api_key", DataClassification: "public",
				Encrypted: true,
			},
		},
		{
			Match: "file",
			Type:  TypeFileSystem,
			Reliability: Reliability{
				Availability: 0.9999, ErrorRate: 0.0001, ResponseTimeMillis: 10,
				FailureImpact: CriticalityMedium, RequiresMonitoring: false,
			},
			Security: Security{
				AuthMethod: "none", DataClassification: "internal",
			},
		},
	}
}

// fallbackProfile is applied when no table entry matches.
var fallbackProfile = Profile{
	Type: TypeAPI,
	Reliability: Reliability{
		Availability: 0.95, ErrorRate: 0.05, ResponseTimeMillis: 1000,
		FailureImpact: CriticalityMedium, RequiresMonitoring: true,
	},
	Security: Security{
		AuthMethod: "none", DataClassification: "internal",
	},
}

// lookupProfile finds the first profile whose Match is a substring of the
// lowercased service name.
func lookupProfile(profiles []Profile, service string) Profile {
	lower := strings.ToLower(service)
	for _, p := range profiles {
		if strings.Contains(lower, p.Match) {
			return p
		}
	}
	return fallbackProfile
}
