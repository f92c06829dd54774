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

package database

import (
	"time"

	"github.com/fairgate-io/fairgate/database/models"
	"gorm.io/gorm"
)

// RecordAudit appends a tier transition to the audit trail
func (d *Store) RecordAudit(
	entry *models.AuditEntry,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	result := db.Create(entry)
	return result.Error
}

// RecentAudit returns the most recent audit entries for a community,
// newest first
func (d *Store) RecentAudit(
	communityID string,
	limit int,
	txn *gorm.DB,
) ([]models.AuditEntry, error) {
	var ret []models.AuditEntry
	if txn == nil {
		txn = d.DB()
	}

	query := txn.Where("community_id = ?", communityID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
