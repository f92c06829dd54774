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

import (
	"time"

	"github.com/fairgate-io/fairgate/tier"
)

// Membership records a participant's verified standing in a community.
// A participant holds at most one membership per community.
type Membership struct {
	ID            uint      `gorm:"primarykey"`
	CommunityID   string    `gorm:"uniqueIndex:idx_community_participant;size:64"`
	ParticipantID string    `gorm:"uniqueIndex:idx_community_participant;size:64"`
	WalletAddress string    `gorm:"index;size:64"`
	Tier          string    `gorm:"size:16"`
	Score         int       `gorm:"index"`
	VerifiedAt    time.Time
	CheckedAt     time.Time `gorm:"index"`
}

func (Membership) TableName() string {
	return "membership"
}

// TierLevel returns the membership's tier as a typed level
func (m *Membership) TierLevel() tier.Level {
	return tier.Level(m.Tier)
}
