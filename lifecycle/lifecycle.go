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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fairgate-io/fairgate/database"
	"github.com/fairgate-io/fairgate/database/models"
	"github.com/fairgate-io/fairgate/event"
	"github.com/fairgate-io/fairgate/siws"
	"github.com/fairgate-io/fairgate/tier"
	"github.com/prometheus/client_golang/prometheus"
)

// Transition classifications recorded in the audit trail
const (
	ActionVerified  = "verified"
	ActionRejected  = "rejected"
	ActionPromoted  = "promoted"
	ActionDemoted   = "demoted"
	ActionEvicted   = "evicted"
	ActionUnchanged = "unchanged"
	// ActionChecked is the audit action recorded for a re-check that
	// left the member's tier in place
	ActionChecked = "checked"
)

var (
	ErrUnknownCommunity   = errors.New("unknown community")
	ErrMembershipNotFound = errors.New("membership not found")
)

// ScoreSource provides the current reputation score for a wallet
type ScoreSource interface {
	ScoreForWithCache(ctx context.Context, wallet string) (int, error)
}

// EngineConfig is the configuration for the lifecycle engine
type EngineConfig struct {
	Logger       *slog.Logger
	Store        *database.Store
	Verifier     *siws.Verifier
	Scores       ScoreSource
	Access       AccessController
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Now          func() time.Time
}

// Engine drives the membership lifecycle: first-time verification,
// periodic re-checks, and the resulting tier transitions.
type Engine struct {
	logger             *slog.Logger
	store              *database.Store
	verifier           *siws.Verifier
	scores             ScoreSource
	access             AccessController
	eventBus           *event.EventBus
	now                func() time.Time
	transitionsCounter *prometheus.CounterVec
}

// NewEngine creates a new lifecycle engine
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		logger:   cfg.Logger,
		store:    cfg.Store,
		verifier: cfg.Verifier,
		scores:   cfg.Scores,
		access:   cfg.Access,
		eventBus: cfg.EventBus,
		now:      cfg.Now,
	}
	if e.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.access == nil {
		e.access = NewLogAccessController(e.logger)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if cfg.PromRegistry != nil {
		e.transitionsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgate_lifecycle_transitions_total",
				Help: "Membership transitions by action",
			},
			[]string{"action"},
		)
		cfg.PromRegistry.MustRegister(e.transitionsCounter)
	}
	return e
}

// VerifyRequest is a first-time verification attempt: a signed
// sign-in message plus the community the participant wants to join.
// Wallet is the base58-encoded Solana address, which doubles as the
// Ed25519 public key for signature verification.
type VerifyRequest struct {
	CommunityID   string
	ParticipantID string
	Wallet        string
	Message       string
	Signature     []byte
}

// VerifyResult reports the outcome of a verification attempt
type VerifyResult struct {
	Granted bool
	Tier    tier.Level
	Score   int
}

// Verify proves wallet ownership, fetches the wallet's reputation
// score, and grants the appropriate tier. Signature verification
// happens before any score lookup so an invalid signature never
// consumes a provider request.
func (e *Engine) Verify(
	ctx context.Context,
	req VerifyRequest,
) (*VerifyResult, error) {
	community, err := e.store.GetCommunity(req.CommunityID, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup community: %w", err)
	}
	if community == nil {
		return nil, fmt.Errorf(
			"community %q: %w",
			req.CommunityID,
			ErrUnknownCommunity,
		)
	}
	if err := e.verifier.Verify(
		ctx,
		req.Wallet,
		req.Message,
		req.Signature,
		req.ParticipantID,
	); err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	score, err := e.scores.ScoreForWithCache(ctx, req.Wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch score: %w", err)
	}
	thresholds := community.Thresholds()
	newTier := tier.ForScore(score, thresholds)
	now := e.now()
	// The membership is recorded even when the score is below the
	// lowest tier so re-checks can pick the member up later
	if err := e.store.UpsertMembership(&models.Membership{
		CommunityID:   req.CommunityID,
		ParticipantID: req.ParticipantID,
		WalletAddress: req.Wallet,
		Tier:          string(newTier),
		Score:         score,
		VerifiedAt:    now,
		CheckedAt:     now,
	}, nil); err != nil {
		return nil, fmt.Errorf("save membership: %w", err)
	}
	if newTier == tier.None {
		// Ownership proved but reputation too low for the lowest tier
		e.recordAudit(&models.AuditEntry{
			CommunityID:   req.CommunityID,
			ParticipantID: req.ParticipantID,
			WalletAddress: req.Wallet,
			OldTier:       string(tier.None),
			NewTier:       string(tier.None),
			NewScore:      score,
			Action:        ActionRejected,
			Source:        models.AuditSourceSystem,
			CreatedAt:     now,
		})
		e.countTransition(ActionRejected)
		e.notify(
			ctx,
			req.ParticipantID,
			rejectionMessage(community.Name, score, thresholds.Bronze),
		)
		return &VerifyResult{
			Granted: false,
			Tier:    tier.None,
			Score:   score,
		}, nil
	}
	e.recordAudit(&models.AuditEntry{
		CommunityID:   req.CommunityID,
		ParticipantID: req.ParticipantID,
		WalletAddress: req.Wallet,
		OldTier:       string(tier.None),
		NewTier:       string(newTier),
		NewScore:      score,
		Action:        ActionVerified,
		Source:        models.AuditSourceSystem,
		CreatedAt:     now,
	})
	e.countTransition(ActionVerified)
	if err := e.access.GrantAccess(
		ctx,
		req.CommunityID,
		req.ParticipantID,
		newTier,
	); err != nil {
		e.logger.Error(
			"failed to grant access",
			"component", "lifecycle",
			"community", req.CommunityID,
			"participant", req.ParticipantID,
			"error", err,
		)
	}
	e.notify(
		ctx,
		req.ParticipantID,
		welcomeMessage(community.Name, newTier),
	)
	if e.eventBus != nil {
		e.eventBus.Publish(
			event.MemberVerifiedEventType,
			event.NewEvent(
				event.MemberVerifiedEventType,
				event.MemberVerifiedEvent{
					CommunityID:   req.CommunityID,
					ParticipantID: req.ParticipantID,
					WalletAddress: req.Wallet,
					Tier:          string(newTier),
					Score:         score,
					Timestamp:     now,
				},
			),
		)
	}
	e.logger.Info(
		"membership verified",
		"component", "lifecycle",
		"community", req.CommunityID,
		"participant", req.ParticipantID,
		"tier", newTier,
		"score", score,
	)
	return &VerifyResult{
		Granted: true,
		Tier:    newTier,
		Score:   score,
	}, nil
}

// RecheckSummary reports the outcome of a bulk re-check
type RecheckSummary struct {
	Total           int   `json:"total"`
	Checked         int   `json:"checked"`
	Evicted         int   `json:"evicted"`
	Promoted        int   `json:"promoted"`
	Demoted         int   `json:"demoted"`
	Unchanged       int   `json:"unchanged"`
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// RecheckAll re-checks every member of a community sequentially. A
// failure for one member is logged and skipped so the rest of the
// community is still processed. Cancelling the context stops the sweep
// and returns the partial summary along with the context error.
func (e *Engine) RecheckAll(
	ctx context.Context,
	communityID string,
	source string,
) (*RecheckSummary, error) {
	start := e.now()
	community, err := e.store.GetCommunity(communityID, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup community: %w", err)
	}
	if community == nil {
		return nil, fmt.Errorf(
			"community %q: %w",
			communityID,
			ErrUnknownCommunity,
		)
	}
	memberships, err := e.store.ListMemberships(communityID, nil)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	summary := &RecheckSummary{Total: len(memberships)}
	var ctxErr error
	for i := range memberships {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		membership := memberships[i]
		action, err := e.recheckOne(ctx, community, &membership, source)
		if err != nil {
			e.logger.Error(
				"member re-check failed",
				"component", "lifecycle",
				"community", communityID,
				"participant", membership.ParticipantID,
				"error", err,
			)
			continue
		}
		summary.Checked++
		switch action {
		case ActionEvicted:
			summary.Evicted++
		case ActionPromoted:
			summary.Promoted++
		case ActionDemoted:
			summary.Demoted++
		case ActionUnchanged:
			summary.Unchanged++
		}
	}
	summary.ExecutionTimeMs = e.now().Sub(start).Milliseconds()
	if e.eventBus != nil {
		e.eventBus.Publish(
			event.RecheckCompletedEventType,
			event.NewEvent(
				event.RecheckCompletedEventType,
				event.RecheckCompletedEvent{
					CommunityID:     communityID,
					Source:          source,
					Total:           summary.Total,
					Checked:         summary.Checked,
					Evicted:         summary.Evicted,
					Promoted:        summary.Promoted,
					Demoted:         summary.Demoted,
					Unchanged:       summary.Unchanged,
					ExecutionTimeMs: summary.ExecutionTimeMs,
					Timestamp:       e.now(),
				},
			),
		)
	}
	e.logger.Info(
		"re-check completed",
		"component", "lifecycle",
		"community", communityID,
		"source", source,
		"total", summary.Total,
		"checked", summary.Checked,
		"evicted", summary.Evicted,
		"promoted", summary.Promoted,
		"demoted", summary.Demoted,
		"unchanged", summary.Unchanged,
		"duration_ms", summary.ExecutionTimeMs,
	)
	return summary, ctxErr
}

// RecheckMember re-checks a single member on demand
func (e *Engine) RecheckMember(
	ctx context.Context,
	communityID, participantID string,
	source string,
) (string, error) {
	community, err := e.store.GetCommunity(communityID, nil)
	if err != nil {
		return "", fmt.Errorf("lookup community: %w", err)
	}
	if community == nil {
		return "", fmt.Errorf(
			"community %q: %w",
			communityID,
			ErrUnknownCommunity,
		)
	}
	membership, err := e.store.GetMembership(
		communityID,
		participantID,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("lookup membership: %w", err)
	}
	if membership == nil {
		return "", fmt.Errorf(
			"participant %q in community %q: %w",
			participantID,
			communityID,
			ErrMembershipNotFound,
		)
	}
	return e.recheckOne(ctx, community, membership, source)
}

// recheckOne applies the transition procedure for a single member and
// returns the resulting classification
func (e *Engine) recheckOne(
	ctx context.Context,
	community *models.Community,
	membership *models.Membership,
	source string,
) (string, error) {
	newScore, err := e.scores.ScoreForWithCache(
		ctx,
		membership.WalletAddress,
	)
	if err != nil {
		return "", fmt.Errorf("fetch score: %w", err)
	}
	oldTier := membership.TierLevel()
	oldScore := membership.Score
	newTier := tier.ForScore(newScore, community.Thresholds())
	now := e.now()

	if newTier == tier.None && community.AutoEvict {
		return ActionEvicted, e.evict(
			ctx,
			community,
			membership,
			newScore,
			source,
			now,
		)
	}

	// Keep the stored score and check time current even when the tier
	// does not move
	membership.Tier = string(newTier)
	membership.Score = newScore
	membership.CheckedAt = now
	if err := e.store.UpsertMembership(membership, nil); err != nil {
		return "", fmt.Errorf("save membership: %w", err)
	}

	if newTier == oldTier {
		// Every processed member leaves an audit trail entry, even
		// when nothing moved
		e.recordAudit(&models.AuditEntry{
			CommunityID:   community.CommunityID,
			ParticipantID: membership.ParticipantID,
			WalletAddress: membership.WalletAddress,
			OldTier:       string(oldTier),
			NewTier:       string(newTier),
			OldScore:      oldScore,
			NewScore:      newScore,
			Action:        ActionChecked,
			Source:        source,
			CreatedAt:     now,
		})
		e.countTransition(ActionUnchanged)
		return ActionUnchanged, nil
	}

	// A tier change counts as a promotion when the score moved up,
	// even if a threshold change left the stored tier label higher
	action := ActionDemoted
	if newScore > oldScore {
		action = ActionPromoted
	}
	e.recordAudit(&models.AuditEntry{
		CommunityID:   community.CommunityID,
		ParticipantID: membership.ParticipantID,
		WalletAddress: membership.WalletAddress,
		OldTier:       string(oldTier),
		NewTier:       string(newTier),
		OldScore:      oldScore,
		NewScore:      newScore,
		Action:        action,
		Source:        source,
		CreatedAt:     now,
	})
	e.countTransition(action)
	if e.eventBus != nil {
		e.eventBus.Publish(
			event.TierChangedEventType,
			event.NewEvent(
				event.TierChangedEventType,
				event.TierChangedEvent{
					CommunityID:   community.CommunityID,
					ParticipantID: membership.ParticipantID,
					OldTier:       string(oldTier),
					NewTier:       string(newTier),
					OldScore:      oldScore,
					NewScore:      newScore,
					Timestamp:     now,
				},
			),
		)
	}
	if action == ActionPromoted {
		if err := e.access.GrantAccess(
			ctx,
			community.CommunityID,
			membership.ParticipantID,
			newTier,
		); err != nil {
			e.logger.Error(
				"failed to grant access",
				"component", "lifecycle",
				"community", community.CommunityID,
				"participant", membership.ParticipantID,
				"error", err,
			)
		}
		if oldTier == tier.None {
			// Regained access after a prior demotion to no tier
			e.notify(
				ctx,
				membership.ParticipantID,
				welcomeMessage(community.Name, newTier),
			)
		} else {
			e.notify(
				ctx,
				membership.ParticipantID,
				promotionMessage(community.Name, oldTier, newTier),
			)
		}
	} else if oldTier != tier.None {
		// A member who already held no tier is not re-notified about
		// losing standing they did not have
		e.notify(
			ctx,
			membership.ParticipantID,
			demotionMessage(community.Name, oldTier, newTier),
		)
	}
	return action, nil
}

// evict removes a member whose score fell below the lowest threshold
func (e *Engine) evict(
	ctx context.Context,
	community *models.Community,
	membership *models.Membership,
	newScore int,
	source string,
	now time.Time,
) error {
	oldTier := membership.TierLevel()
	if err := e.access.Evict(
		ctx,
		community.CommunityID,
		membership.ParticipantID,
	); err != nil {
		e.logger.Error(
			"failed to revoke access",
			"component", "lifecycle",
			"community", community.CommunityID,
			"participant", membership.ParticipantID,
			"error", err,
		)
	}
	if err := e.store.DeleteMembership(
		community.CommunityID,
		membership.ParticipantID,
		nil,
	); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	e.recordAudit(&models.AuditEntry{
		CommunityID:   community.CommunityID,
		ParticipantID: membership.ParticipantID,
		WalletAddress: membership.WalletAddress,
		OldTier:       string(oldTier),
		NewTier:       string(tier.None),
		OldScore:      membership.Score,
		NewScore:      newScore,
		Action:        ActionEvicted,
		Source:        source,
		CreatedAt:     now,
	})
	e.countTransition(ActionEvicted)
	if e.eventBus != nil {
		e.eventBus.Publish(
			event.MemberEvictedEventType,
			event.NewEvent(
				event.MemberEvictedEventType,
				event.MemberEvictedEvent{
					CommunityID:   community.CommunityID,
					ParticipantID: membership.ParticipantID,
					OldTier:       string(oldTier),
					OldScore:      membership.Score,
					NewScore:      newScore,
					Timestamp:     now,
				},
			),
		)
	}
	// Removal is always announced; the prior-tier suppression rule
	// covers only promotion and demotion messages
	e.notify(
		ctx,
		membership.ParticipantID,
		evictionMessage(community.Name),
	)
	e.logger.Info(
		"member evicted",
		"component", "lifecycle",
		"community", community.CommunityID,
		"participant", membership.ParticipantID,
		"old_tier", oldTier,
		"score", newScore,
	)
	return nil
}

// recordAudit appends to the audit trail, logging rather than failing
// the transition if the write does not succeed
func (e *Engine) recordAudit(entry *models.AuditEntry) {
	if err := e.store.RecordAudit(entry, nil); err != nil {
		e.logger.Error(
			"failed to record audit entry",
			"component", "lifecycle",
			"community", entry.CommunityID,
			"participant", entry.ParticipantID,
			"error", err,
		)
	}
}

// notify sends a direct message, logging rather than failing the
// transition if delivery does not succeed
func (e *Engine) notify(
	ctx context.Context,
	participantID, message string,
) {
	if err := e.access.Notify(ctx, participantID, message); err != nil {
		e.logger.Error(
			"failed to notify participant",
			"component", "lifecycle",
			"participant", participantID,
			"error", err,
		)
	}
}

func (e *Engine) countTransition(action string) {
	if e.transitionsCounter != nil {
		e.transitionsCounter.WithLabelValues(action).Inc()
	}
}
