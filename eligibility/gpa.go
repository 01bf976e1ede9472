// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eligibility

// Semester is the per-certificate input to GpaEquivalent
type Semester struct {
	// Sgpa is scaled by 100
	Sgpa    uint64
	Credits uint64
	Revoked bool
}

// GpaEquivalent returns the credit-weighted average SGPA across the
// non-revoked semesters, scaled by 100 and rounded half up. It returns 0 when
// there are no credits.
func GpaEquivalent(semesters []Semester) uint64 {
	var weighted, credits uint64
	for _, s := range semesters {
		if s.Revoked {
			continue
		}
		weighted += s.Sgpa * s.Credits
		credits += s.Credits
	}
	if credits == 0 {
		return 0
	}
	return (weighted*2 + credits) / (credits * 2)
}
