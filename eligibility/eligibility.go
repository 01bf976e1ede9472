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

// Package eligibility evaluates scholarship criteria against an identity's
// academic record. Everything in this package is side-effect free.
package eligibility

import (
	"slices"
)

// Check names an individual eligibility requirement
type Check string

const (
	CheckMinGpa          Check = "min_gpa"
	CheckMinCertificates Check = "min_certificates"
	CheckDepartment      Check = "department"
	CheckCourses         Check = "courses"
	CheckEnrolledAfter   Check = "enrolled_after"
	CheckEnrolledBefore  Check = "enrolled_before"
)

// Criteria is the structured predicate attached to a scholarship. Zero and
// empty values mean "unconstrained".
type Criteria struct {
	// MinGpa is scaled by 100 (350 == 3.50)
	MinGpa             uint64   `json:"min_gpa,omitempty"`
	RequiredCourses    []string `json:"required_courses,omitempty"`
	RequiresAllCourses bool     `json:"requires_all_courses,omitempty"`
	AllowedDepartments []string `json:"allowed_departments,omitempty"`
	MinCertificates    uint64   `json:"min_certificates,omitempty"`
	// EnrolledAfter and EnrolledBefore are unix timestamps in seconds
	EnrolledAfter  int64 `json:"enrolled_after,omitempty"`
	EnrolledBefore int64 `json:"enrolled_before,omitempty"`
}

// Normalize returns a copy of the criteria with set-valued fields sorted and
// de-duplicated
func (c Criteria) Normalize() Criteria {
	ret := c
	ret.RequiredCourses = normalizeSet(c.RequiredCourses)
	ret.AllowedDepartments = normalizeSet(c.AllowedDepartments)
	return ret
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	ret := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		ret = append(ret, v)
	}
	slices.Sort(ret)
	return slices.Compact(ret)
}

// Record is the subset of an identity's registry entry used for evaluation
type Record struct {
	Department string
	// EnrollmentDate is a unix timestamp in seconds
	EnrollmentDate int64
	// GpaEquivalent is scaled by 100
	GpaEquivalent uint64
}

// Holding is a single certificate held by an identity
type Holding struct {
	CourseNames []string
	Revoked     bool
}

// Evaluate returns true when the record and holdings satisfy every
// applicable check of the criteria
func Evaluate(criteria Criteria, record Record, holdings []Holding) bool {
	return len(Failed(criteria, record, holdings)) == 0
}

// Failed returns the checks that the record and holdings do not satisfy, in a
// stable order. An empty result means eligible.
func Failed(criteria Criteria, record Record, holdings []Holding) []Check {
	var ret []Check
	if criteria.MinGpa > 0 && record.GpaEquivalent < criteria.MinGpa {
		ret = append(ret, CheckMinGpa)
	}
	var validCount uint64
	courses := make(map[string]struct{})
	for _, holding := range holdings {
		if holding.Revoked {
			continue
		}
		validCount++
		for _, name := range holding.CourseNames {
			courses[name] = struct{}{}
		}
	}
	if validCount < criteria.MinCertificates {
		ret = append(ret, CheckMinCertificates)
	}
	if len(criteria.AllowedDepartments) > 0 &&
		!slices.Contains(criteria.AllowedDepartments, record.Department) {
		ret = append(ret, CheckDepartment)
	}
	if !coursesSatisfied(criteria, courses) {
		ret = append(ret, CheckCourses)
	}
	if criteria.EnrolledAfter > 0 &&
		record.EnrollmentDate < criteria.EnrolledAfter {
		ret = append(ret, CheckEnrolledAfter)
	}
	if criteria.EnrolledBefore > 0 &&
		record.EnrollmentDate > criteria.EnrolledBefore {
		ret = append(ret, CheckEnrolledBefore)
	}
	return ret
}

func coursesSatisfied(criteria Criteria, held map[string]struct{}) bool {
	if len(criteria.RequiredCourses) == 0 {
		return true
	}
	for _, course := range criteria.RequiredCourses {
		_, ok := held[course]
		if criteria.RequiresAllCourses && !ok {
			return false
		}
		if !criteria.RequiresAllCourses && ok {
			return true
		}
	}
	return criteria.RequiresAllCourses
}
