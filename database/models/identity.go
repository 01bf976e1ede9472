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
	"errors"
	"time"
)

var ErrIdentityNotFound = errors.New("identity not found")

// Identity is a registered student keyed by an external identity key
type Identity struct {
	EnrollmentDate time.Time
	CreatedAt      time.Time
	IdentityKey    string `gorm:"uniqueIndex;size:128;not null"`
	StudentNumber  string `gorm:"index;size:64"`
	Name           string
	Email          string
	Department     string `gorm:"index;size:64"`
	Program        string
	ID             uint `gorm:"primarykey"`
	IsGraduated    bool
}

func (Identity) TableName() string {
	return "identity"
}
