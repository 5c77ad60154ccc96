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

// DelegateProfile marks an identity approved to vote on behalf of others
type DelegateProfile struct {
	Authority    []byte `gorm:"primaryKey;size:32"`
	IsActive     bool   `gorm:"index"`
	RegisteredAt int64
}

func (DelegateProfile) TableName() string {
	return "delegate_profile"
}

type Delegation struct {
	Delegator      []byte `gorm:"primaryKey;size:32"`
	DelegateTarget []byte `gorm:"index;size:32;not null"`
	DelegatedAt    int64
}

func (Delegation) TableName() string {
	return "delegation"
}
