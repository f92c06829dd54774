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
	"errors"
	"fmt"

	"github.com/fairgate-io/fairgate/database/models"
	"gorm.io/gorm"
)

// GetMembership gets a membership by community and participant.
// Returns nil with no error when none exists.
func (d *Store) GetMembership(
	communityID, participantID string,
	txn *gorm.DB,
) (*models.Membership, error) {
	ret := &models.Membership{}
	if txn == nil {
		txn = d.DB()
	}

	result := txn.Where(
		"community_id = ? AND participant_id = ?",
		communityID,
		participantID,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// UpsertMembership saves a membership, replacing any existing row for
// the same community and participant
func (d *Store) UpsertMembership(
	membership *models.Membership,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}

	// Find or create membership for this community and participant
	existing := &models.Membership{}
	result := db.FirstOrCreate(existing, models.Membership{
		CommunityID:   membership.CommunityID,
		ParticipantID: membership.ParticipantID,
	})
	if result.Error != nil {
		return fmt.Errorf(
			"failed to find or create membership: %w",
			result.Error,
		)
	}

	updates := map[string]any{
		"wallet_address": membership.WalletAddress,
		"tier":           membership.Tier,
		"score":          membership.Score,
		"verified_at":    membership.VerifiedAt,
		"checked_at":     membership.CheckedAt,
	}
	if err := db.Model(existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	membership.ID = existing.ID

	return nil
}

// ListMemberships returns all memberships for a community ordered by
// participant
func (d *Store) ListMemberships(
	communityID string,
	txn *gorm.DB,
) ([]models.Membership, error) {
	var ret []models.Membership
	if txn == nil {
		txn = d.DB()
	}

	result := txn.Where("community_id = ?", communityID).
		Order("participant_id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// DeleteMembership removes a membership. Deleting a membership that
// does not exist is not an error.
func (d *Store) DeleteMembership(
	communityID, participantID string,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}

	result := db.Where(
		"community_id = ? AND participant_id = ?",
		communityID,
		participantID,
	).Delete(&models.Membership{})
	return result.Error
}
