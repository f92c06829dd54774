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

package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fairgate-io/fairgate"
	"github.com/fairgate-io/fairgate/database/models"
	"github.com/fairgate-io/fairgate/internal/config"
)

// Recheck runs a one-shot re-check of a community (or a single member
// when participantID is non-empty) and prints the outcome as JSON.
func Recheck(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	communityID string,
	participantID string,
) error {
	g, err := fairgate.New(
		fairgate.NewConfig(
			fairgate.WithLogger(logger),
			fairgate.WithDataDir(cfg.DatabasePath),
			fairgate.WithProviderURL(cfg.ProviderURL),
			fairgate.WithProviderAPIKey(cfg.ProviderAPIKey),
			fairgate.WithProviderTimeout(
				config.Duration(cfg.ProviderTimeout, 10*time.Second),
			),
			fairgate.WithFreshnessWindow(
				config.Duration(cfg.FreshnessWindow, 10*time.Minute),
			),
			fairgate.WithBreakerThreshold(cfg.BreakerThreshold),
			fairgate.WithBreakerCooldown(
				config.Duration(cfg.BreakerCooldown, 60*time.Second),
			),
		),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
		}
	}()

	if participantID != "" {
		outcome, err := g.RecheckMember(
			ctx,
			communityID,
			participantID,
			models.AuditSourceAdmin,
		)
		if err != nil {
			return fmt.Errorf("re-check member: %w", err)
		}
		fmt.Printf(
			"{\"communityId\":%q,\"participantId\":%q,\"outcome\":%q}\n",
			communityID,
			participantID,
			outcome,
		)
		return nil
	}

	summary, err := g.RecheckNow(ctx, communityID, models.AuditSourceAdmin)
	if err != nil && summary == nil {
		return fmt.Errorf("re-check community: %w", err)
	}
	out, jsonErr := json.Marshal(summary)
	if jsonErr != nil {
		return errors.Join(err, jsonErr)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return err
}
