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

package event

import "time"

// MemberVerifiedEventType is the event type for successful first-time verification
const MemberVerifiedEventType = EventType("member.verified")

// MemberVerifiedEvent is emitted when a participant completes wallet
// verification and is granted a tier in a community
type MemberVerifiedEvent struct {
	CommunityID   string
	ParticipantID string
	WalletAddress string
	Tier          string
	Score         int
	Timestamp     time.Time
}

// TierChangedEventType is the event type for promotions and demotions
const TierChangedEventType = EventType("member.tier-changed")

// TierChangedEvent is emitted when a re-check moves a member between
// tiers without evicting them
type TierChangedEvent struct {
	CommunityID   string
	ParticipantID string
	OldTier       string
	NewTier       string
	OldScore      int
	NewScore      int
	Timestamp     time.Time
}

// MemberEvictedEventType is the event type for evictions
const MemberEvictedEventType = EventType("member.evicted")

// MemberEvictedEvent is emitted when a member's score falls below the
// lowest tier threshold in a community with auto-eviction enabled
type MemberEvictedEvent struct {
	CommunityID   string
	ParticipantID string
	OldTier       string
	OldScore      int
	NewScore      int
	Timestamp     time.Time
}

// RecheckCompletedEventType is the event type for completed bulk re-checks
const RecheckCompletedEventType = EventType("recheck.completed")

// RecheckCompletedEvent is emitted after a bulk re-check finishes,
// carrying its summary counts
type RecheckCompletedEvent struct {
	CommunityID     string
	Source          string
	Total           int
	Checked         int
	Evicted         int
	Promoted        int
	Demoted         int
	Unchanged       int
	ExecutionTimeMs int64
	Timestamp       time.Time
}
