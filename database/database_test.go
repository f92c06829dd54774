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

package database_test

import (
	"testing"
	"time"

	"github.com/fairgate-io/fairgate/database"
	"github.com/fairgate-io/fairgate/database/models"
	"github.com/fairgate-io/fairgate/siws"
	"github.com/fairgate-io/fairgate/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.New(database.StoreConfig{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("unexpected error closing store: %s", err)
		}
	})
	return store
}

func TestMembershipRoundTrip(t *testing.T) {
	store := testStore(t)
	// Absent membership returns nil with no error
	membership, err := store.GetMembership("community-1", "user-1", nil)
	require.NoError(t, err)
	assert.Nil(t, membership)

	verifiedAt := time.Now().Truncate(time.Second)
	require.NoError(t, store.UpsertMembership(&models.Membership{
		CommunityID:   "community-1",
		ParticipantID: "user-1",
		WalletAddress: "wallet-abc",
		Tier:          string(tier.Silver),
		Score:         560,
		VerifiedAt:    verifiedAt,
		CheckedAt:     verifiedAt,
	}, nil))

	membership, err = store.GetMembership("community-1", "user-1", nil)
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, "wallet-abc", membership.WalletAddress)
	assert.Equal(t, tier.Silver, membership.TierLevel())
	assert.Equal(t, 560, membership.Score)
}

func TestMembershipUpsertReplacesExisting(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.UpsertMembership(&models.Membership{
		CommunityID:   "community-1",
		ParticipantID: "user-1",
		WalletAddress: "wallet-abc",
		Tier:          string(tier.Bronze),
		Score:         340,
	}, nil))
	require.NoError(t, store.UpsertMembership(&models.Membership{
		CommunityID:   "community-1",
		ParticipantID: "user-1",
		WalletAddress: "wallet-abc",
		Tier:          string(tier.Gold),
		Score:         810,
	}, nil))

	memberships, err := store.ListMemberships("community-1", nil)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, tier.Gold, memberships[0].TierLevel())
	assert.Equal(t, 810, memberships[0].Score)
}

func TestMembershipDelete(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.UpsertMembership(&models.Membership{
		CommunityID:   "community-1",
		ParticipantID: "user-1",
		Tier:          string(tier.Bronze),
		Score:         340,
	}, nil))
	require.NoError(t, store.DeleteMembership("community-1", "user-1", nil))
	membership, err := store.GetMembership("community-1", "user-1", nil)
	require.NoError(t, err)
	assert.Nil(t, membership)
	// Deleting again is not an error
	require.NoError(t, store.DeleteMembership("community-1", "user-1", nil))
}

func TestMembershipScopedByCommunity(t *testing.T) {
	store := testStore(t)
	for _, communityID := range []string{"community-1", "community-2"} {
		require.NoError(t, store.UpsertMembership(&models.Membership{
			CommunityID:   communityID,
			ParticipantID: "user-1",
			Tier:          string(tier.Bronze),
			Score:         340,
		}, nil))
	}
	memberships, err := store.ListMemberships("community-1", nil)
	require.NoError(t, err)
	assert.Len(t, memberships, 1)
}

func TestCommunityRoundTrip(t *testing.T) {
	store := testStore(t)
	community, err := store.GetCommunity("community-1", nil)
	require.NoError(t, err)
	assert.Nil(t, community)

	require.NoError(t, store.SetCommunity(&models.Community{
		CommunityID:     "community-1",
		Name:            "Test Community",
		BronzeThreshold: 300,
		SilverThreshold: 500,
		GoldThreshold:   700,
		AutoEvict:       true,
		RecheckEnabled:  true,
	}, nil))

	community, err = store.GetCommunity("community-1", nil)
	require.NoError(t, err)
	require.NotNil(t, community)
	assert.Equal(t, "Test Community", community.Name)
	assert.True(t, community.AutoEvict)
	assert.Equal(
		t,
		tier.Thresholds{Bronze: 300, Silver: 500, Gold: 700},
		community.Thresholds(),
	)

	// Updating keeps a single row
	community.GoldThreshold = 750
	require.NoError(t, store.SetCommunity(community, nil))
	communities, err := store.ListCommunities(nil)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Equal(t, 750, communities[0].GoldThreshold)
}

func TestNonceInsertAndReplay(t *testing.T) {
	store := testStore(t)
	exists, err := store.NonceExists("nonce-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.InsertNonce("nonce-1", "user-1"))
	exists, err = store.NonceExists("nonce-1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Second consumption of the same nonce fails, even for another
	// participant
	err = store.InsertNonce("nonce-1", "user-2")
	require.ErrorIs(t, err, siws.ErrNonceReplayed)
}

func TestNoncePrune(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.InsertNonce("nonce-old", "user-1"))
	require.NoError(t, store.InsertNonce("nonce-new", "user-1"))

	// Nothing is older than a day ago
	pruned, err := store.PruneNonces(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), pruned)

	// Everything is older than a minute from now
	pruned, err = store.PruneNonces(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	exists, err := store.NonceExists("nonce-old")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAuditTrail(t *testing.T) {
	store := testStore(t)
	entries := []models.AuditEntry{
		{
			CommunityID:   "community-1",
			ParticipantID: "user-1",
			OldTier:       string(tier.None),
			NewTier:       string(tier.Bronze),
			NewScore:      340,
			Action:        "promoted",
			Source:        models.AuditSourceSystem,
			CreatedAt:     time.Now().Add(-2 * time.Hour),
		},
		{
			CommunityID:   "community-1",
			ParticipantID: "user-1",
			OldTier:       string(tier.Bronze),
			NewTier:       string(tier.Silver),
			OldScore:      340,
			NewScore:      560,
			Action:        "promoted",
			Source:        models.AuditSourceCron,
			CreatedAt:     time.Now().Add(-time.Hour),
		},
		{
			CommunityID:   "community-2",
			ParticipantID: "user-2",
			OldTier:       string(tier.Bronze),
			NewTier:       string(tier.None),
			OldScore:      340,
			NewScore:      120,
			Action:        "evicted",
			Source:        models.AuditSourceAdmin,
			CreatedAt:     time.Now(),
		},
	}
	for i := range entries {
		require.NoError(t, store.RecordAudit(&entries[i], nil))
	}

	recent, err := store.RecentAudit("community-1", 10, nil)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first
	assert.Equal(t, models.AuditSourceCron, recent[0].Source)
	assert.Equal(t, models.AuditSourceSystem, recent[1].Source)

	limited, err := store.RecentAudit("community-1", 1, nil)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, string(tier.Silver), limited[0].NewTier)
}

func TestStoreSatisfiesNonceStore(t *testing.T) {
	var _ siws.NonceStore = testStore(t)
}
