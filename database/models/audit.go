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

// Audit entry sources
const (
	AuditSourceCron   = "cron"
	AuditSourceAdmin  = "admin"
	AuditSourceSystem = "system"
)

// AuditEntry records a tier transition for a member: the before and
// after state plus what triggered the check.
type AuditEntry struct {
	ID            uint   `gorm:"primarykey"`
	CommunityID   string `gorm:"index;size:64"`
	ParticipantID string `gorm:"index;size:64"`
	WalletAddress string `gorm:"size:64"`
	OldTier       string `gorm:"size:16"`
	NewTier       string `gorm:"size:16"`
	OldScore      int
	NewScore      int
	Action        string    `gorm:"size:16"`
	Source        string    `gorm:"size:16"`
	CreatedAt     time.Time `gorm:"index"`
}

func (AuditEntry) TableName() string {
	return "audit_entry"
}
