// Copyright 2026 Fairgate Labs
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

import "time"

// UsedNonce records a consumed sign-in nonce. The unique index makes
// the insert the authoritative replay check: two concurrent sign-ins
// with the same nonce race to insert and exactly one wins.
type UsedNonce struct {
	ID            uint      `gorm:"primarykey"`
	Nonce         string    `gorm:"uniqueIndex;size:128"`
	ParticipantID string    `gorm:"index;size:64"`
	UsedAt        time.Time `gorm:"index"`
}

func (UsedNonce) TableName() string {
	return "used_nonce"
}
