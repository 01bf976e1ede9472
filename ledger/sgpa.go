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
	"github.com/blinklabs-io/certledger/database/models"
)

// ComputeSGPA derives a semester's SGPA and total credits from its grade
// sheet. Courses with zero credits or zero grade points are dropped first and
// the remaining courses are returned as filtered. SGPA and total credits are
// then computed over the Pass courses of the filtered set, SGPA scaled by 100
// and rounded half up. It fails with ErrNoValidCourses when nothing survives
// the filter
func ComputeSGPA(courses []Course) (sgpa uint64, totalCredits uint64, filtered []Course, err error) {
	filtered = make([]Course, 0, len(courses))
	for _, course := range courses {
		if course.CreditsObtained == 0 || course.GradePoints == 0 {
			continue
		}
		filtered = append(filtered, course)
	}
	if len(filtered) == 0 {
		return 0, 0, nil, ErrNoValidCourses
	}
	var weighted uint64
	for _, course := range filtered {
		if models.CourseStatus(course.Status) != models.CourseStatusPass {
			continue
		}
		weighted += course.GradePoints * course.CreditsObtained
		totalCredits += course.CreditsObtained
	}
	if totalCredits == 0 {
		return 0, 0, filtered, nil
	}
	sgpa = (weighted*2 + totalCredits) / (totalCredits * 2)
	return sgpa, totalCredits, filtered, nil
}
