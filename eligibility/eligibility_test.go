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

package eligibility_test

import (
	"testing"

	"github.com/blinklabs-io/certledger/eligibility"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateMinGpa(t *testing.T) {
	criteria := eligibility.Criteria{MinGpa: 350}
	assert.False(
		t,
		eligibility.Evaluate(
			criteria,
			eligibility.Record{GpaEquivalent: 320},
			nil,
		),
	)
	assert.True(
		t,
		eligibility.Evaluate(
			criteria,
			eligibility.Record{GpaEquivalent: 350},
			nil,
		),
	)
	// A zero threshold means no GPA requirement
	assert.True(
		t,
		eligibility.Evaluate(
			eligibility.Criteria{},
			eligibility.Record{GpaEquivalent: 0},
			nil,
		),
	)
}

func TestFailedChecks(t *testing.T) {
	holdings := []eligibility.Holding{
		{CourseNames: []string{"Algorithms"}},
		{CourseNames: []string{"Databases"}, Revoked: true},
	}
	testDefs := []struct {
		name     string
		criteria eligibility.Criteria
		record   eligibility.Record
		expected []eligibility.Check
	}{
		{
			name:     "unconstrained",
			criteria: eligibility.Criteria{},
		},
		{
			name:     "revoked certificates do not count",
			criteria: eligibility.Criteria{MinCertificates: 2},
			expected: []eligibility.Check{eligibility.CheckMinCertificates},
		},
		{
			name: "department allowed",
			criteria: eligibility.Criteria{
				AllowedDepartments: []string{"CSE", "ECE"},
			},
			record: eligibility.Record{Department: "ECE"},
		},
		{
			name: "department not allowed",
			criteria: eligibility.Criteria{
				AllowedDepartments: []string{"CSE"},
			},
			record:   eligibility.Record{Department: "MECH"},
			expected: []eligibility.Check{eligibility.CheckDepartment},
		},
		{
			name: "any course held",
			criteria: eligibility.Criteria{
				RequiredCourses: []string{"Databases", "Algorithms"},
			},
		},
		{
			name: "all courses with one revoked",
			criteria: eligibility.Criteria{
				RequiredCourses:    []string{"Databases", "Algorithms"},
				RequiresAllCourses: true,
			},
			expected: []eligibility.Check{eligibility.CheckCourses},
		},
		{
			name: "any course none held",
			criteria: eligibility.Criteria{
				RequiredCourses: []string{"Databases", "Compilers"},
			},
			expected: []eligibility.Check{eligibility.CheckCourses},
		},
		{
			name: "enrollment window",
			criteria: eligibility.Criteria{
				EnrolledAfter:  1000,
				EnrolledBefore: 2000,
			},
			record: eligibility.Record{EnrollmentDate: 2000},
		},
		{
			name: "enrolled too early",
			criteria: eligibility.Criteria{
				EnrolledAfter:  1000,
				EnrolledBefore: 2000,
			},
			record:   eligibility.Record{EnrollmentDate: 999},
			expected: []eligibility.Check{eligibility.CheckEnrolledAfter},
		},
		{
			name:     "enrolled too late",
			criteria: eligibility.Criteria{EnrolledBefore: 2000},
			record:   eligibility.Record{EnrollmentDate: 2001},
			expected: []eligibility.Check{eligibility.CheckEnrolledBefore},
		},
		{
			name: "multiple failures in stable order",
			criteria: eligibility.Criteria{
				MinGpa:             900,
				AllowedDepartments: []string{"CSE"},
				EnrolledAfter:      5000,
			},
			record: eligibility.Record{
				Department:     "EEE",
				EnrollmentDate: 10,
				GpaEquivalent:  850,
			},
			expected: []eligibility.Check{
				eligibility.CheckMinGpa,
				eligibility.CheckDepartment,
				eligibility.CheckEnrolledAfter,
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			failed := eligibility.Failed(
				testDef.criteria,
				testDef.record,
				holdings,
			)
			assert.Equal(t, testDef.expected, failed)
			assert.Equal(
				t,
				len(testDef.expected) == 0,
				eligibility.Evaluate(
					testDef.criteria,
					testDef.record,
					holdings,
				),
			)
		})
	}
}

func TestEvaluateIsRepeatable(t *testing.T) {
	criteria := eligibility.Criteria{
		MinGpa:          700,
		MinCertificates: 1,
		RequiredCourses: []string{"Algorithms"},
	}
	record := eligibility.Record{GpaEquivalent: 720}
	holdings := []eligibility.Holding{{CourseNames: []string{"Algorithms"}}}
	first := eligibility.Evaluate(criteria, record, holdings)
	second := eligibility.Evaluate(criteria, record, holdings)
	assert.True(t, first)
	assert.Equal(t, first, second)
}

func TestCriteriaNormalize(t *testing.T) {
	c := eligibility.Criteria{
		RequiredCourses:    []string{"b", "a", "b", ""},
		AllowedDepartments: []string{},
	}.Normalize()
	assert.Equal(t, []string{"a", "b"}, c.RequiredCourses)
	assert.Nil(t, c.AllowedDepartments)
}

func TestGpaEquivalent(t *testing.T) {
	assert.Equal(t, uint64(0), eligibility.GpaEquivalent(nil))
	assert.Equal(
		t,
		uint64(543),
		eligibility.GpaEquivalent([]eligibility.Semester{
			{Sgpa: 543, Credits: 7},
		}),
	)
	// (800*10 + 700*5) / 15 = 766.67
	assert.Equal(
		t,
		uint64(767),
		eligibility.GpaEquivalent([]eligibility.Semester{
			{Sgpa: 800, Credits: 10},
			{Sgpa: 700, Credits: 5},
			{Sgpa: 100, Credits: 50, Revoked: true},
		}),
	)
}
