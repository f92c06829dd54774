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
	"strings"
	"time"

	"github.com/fairgate-io/fairgate/database/models"
	"github.com/fairgate-io/fairgate/siws"
	"gorm.io/gorm"
)

// NonceExists reports whether a nonce has already been consumed. This
// is an advisory read; InsertNonce is the authoritative check.
func (d *Store) NonceExists(nonce string) (bool, error) {
	var count int64
	result := d.DB().Model(&models.UsedNonce{}).
		Where("nonce = ?", nonce).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// InsertNonce consumes a nonce. The unique index on the nonce column
// arbitrates concurrent consumers: the loser of the race gets a
// replay error.
func (d *Store) InsertNonce(nonce, participantID string) error {
	result := d.DB().Create(&models.UsedNonce{
		Nonce:         nonce,
		ParticipantID: participantID,
		UsedAt:        time.Now(),
	})
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf(
				"nonce %q: %w",
				nonce,
				siws.ErrNonceReplayed,
			)
		}
		return result.Error
	}
	return nil
}

// PruneNonces deletes consumed nonces recorded before the given time
// and returns the number deleted
func (d *Store) PruneNonces(olderThan time.Time) (int64, error) {
	result := d.DB().Where("used_at < ?", olderThan).
		Delete(&models.UsedNonce{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver surfaces constraint violations as plain errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
