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

// GetCommunity gets a community's gating configuration. Returns nil
// with no error when none exists.
func (d *Store) GetCommunity(
	communityID string,
	txn *gorm.DB,
) (*models.Community, error) {
	ret := &models.Community{}
	if txn == nil {
		txn = d.DB()
	}

	result := txn.Where("community_id = ?", communityID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetCommunity saves a community's gating configuration
func (d *Store) SetCommunity(
	community *models.Community,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}

	existing := &models.Community{}
	result := db.FirstOrCreate(existing, models.Community{
		CommunityID: community.CommunityID,
	})
	if result.Error != nil {
		return fmt.Errorf(
			"failed to find or create community: %w",
			result.Error,
		)
	}

	updates := map[string]any{
		"name":             community.Name,
		"bronze_threshold": community.BronzeThreshold,
		"silver_threshold": community.SilverThreshold,
		"gold_threshold":   community.GoldThreshold,
		"auto_evict":       community.AutoEvict,
		"recheck_enabled":  community.RecheckEnabled,
	}
	if err := db.Model(existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update community: %w", err)
	}
	community.ID = existing.ID

	return nil
}

// ListCommunities returns all configured communities
func (d *Store) ListCommunities(
	txn *gorm.DB,
) ([]models.Community, error) {
	var ret []models.Community
	if txn == nil {
		txn = d.DB()
	}

	result := txn.Order("community_id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
