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

package models

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateVariant_Value(t *testing.T) {
	tests := []struct {
		name     string
		v        CertificateVariant
		expected driver.Value
	}{
		{
			name:     "Generic",
			v:        CertificateVariantGeneric,
			expected: int64(0),
		},
		{
			name:     "Semester",
			v:        CertificateVariantSemester,
			expected: int64(1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.v.Value()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, val)
		})
	}
}

func TestCertificateVariant_Scan(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		expected  CertificateVariant
		expectErr bool
	}{
		{name: "nil", input: nil, expected: 0},
		{name: "int64", input: int64(1), expected: CertificateVariantSemester},
		{name: "int", input: 1, expected: CertificateVariantSemester},
		{name: "uint64", input: uint64(0), expected: CertificateVariantGeneric},
		{name: "bytes", input: []byte("1"), expected: CertificateVariantSemester},
		{name: "string", input: "0", expected: CertificateVariantGeneric},
		{name: "negative", input: int64(-1), expectErr: true},
		{name: "too large", input: uint64(1000), expectErr: true},
		{name: "bad bytes", input: []byte("x"), expectErr: true},
		{name: "bad type", input: 1.5, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v CertificateVariant
			err := v.Scan(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestCourseStatusValid(t *testing.T) {
	for _, s := range []CourseStatus{
		CourseStatusPass,
		CourseStatusFail,
		CourseStatusAbsent,
		CourseStatusWithheld,
		CourseStatusMalPractice,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, CourseStatus("pass").Valid())
	assert.False(t, CourseStatus("").Valid())
}

func TestCertificateCourseNames(t *testing.T) {
	generic := &Certificate{CourseName: "Distributed Systems"}
	assert.Equal(t, []string{"Distributed Systems"}, generic.CourseNames())

	semester := &Certificate{
		Semester: &SemesterDetail{
			Courses: []SemesterCourse{
				{
					CourseCode:  "CS101",
					CourseTitle: "Programming",
					Status:      CourseStatusPass,
				},
				{
					CourseCode:  "CS102",
					CourseTitle: "Data Structures",
					Status:      CourseStatusFail,
				},
			},
		},
	}
	assert.Equal(t, []string{"Programming", "CS101"}, semester.CourseNames())
}
