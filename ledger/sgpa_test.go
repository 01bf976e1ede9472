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

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(points, credits uint64) Course {
	return Course{
		Status:          "Pass",
		GradePoints:     points,
		CreditsObtained: credits,
	}
}

func TestComputeSGPA(t *testing.T) {
	tests := []struct {
		name          string
		courses       []Course
		expectSgpa    uint64
		expectCredits uint64
		expectKept    int
	}{
		{
			name:          "weighted average",
			courses:       []Course{pass(1000, 4), pass(900, 3)},
			expectSgpa:    957,
			expectCredits: 7,
			expectKept:    2,
		},
		{
			name:          "round half up",
			courses:       []Course{pass(500, 4), pass(600, 3)},
			expectSgpa:    543,
			expectCredits: 7,
			expectKept:    2,
		},
		{
			name:          "exact half rounds up",
			courses:       []Course{pass(801, 1), pass(800, 1)},
			expectSgpa:    801,
			expectCredits: 2,
			expectKept:    2,
		},
		{
			name: "failed courses excluded from sgpa",
			courses: []Course{
				pass(800, 4),
				{Status: "Fail", GradePoints: 100, CreditsObtained: 4},
			},
			expectSgpa:    800,
			expectCredits: 4,
			expectKept:    2,
		},
		{
			name: "zero credit and zero point courses dropped",
			courses: []Course{
				pass(700, 3),
				pass(0, 3),
				pass(900, 0),
			},
			expectSgpa:    700,
			expectCredits: 3,
			expectKept:    1,
		},
		{
			name: "no pass courses",
			courses: []Course{
				{Status: "Absent", GradePoints: 500, CreditsObtained: 3},
			},
			expectSgpa:    0,
			expectCredits: 0,
			expectKept:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sgpa, credits, kept, err := ComputeSGPA(tt.courses)
			require.NoError(t, err)
			assert.Equal(t, tt.expectSgpa, sgpa)
			assert.Equal(t, tt.expectCredits, credits)
			assert.Len(t, kept, tt.expectKept)
		})
	}
}

func TestComputeSGPANoValidCourses(t *testing.T) {
	for _, courses := range [][]Course{
		nil,
		{pass(0, 4)},
		{pass(900, 0), pass(0, 0)},
	} {
		_, _, _, err := ComputeSGPA(courses)
		require.ErrorIs(t, err, ErrNoValidCourses)
		assert.Equal(t, KindNoValidCourses, KindOf(err))
	}
}
