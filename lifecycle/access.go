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
	"io"
	"log/slog"

	"github.com/fairgate-io/fairgate/tier"
)

// AccessController applies membership decisions to the chat platform:
// granting room access on verification, revoking it on eviction, and
// delivering direct notifications. Implementations talk to a specific
// platform; the engine treats all of these as best-effort side effects.
type AccessController interface {
	GrantAccess(
		ctx context.Context,
		communityID, participantID string,
		level tier.Level,
	) error
	Evict(ctx context.Context, communityID, participantID string) error
	Notify(ctx context.Context, participantID, message string) error
}

// LogAccessController is an AccessController that only logs. It stands
// in when no platform integration is configured, and in tests.
type LogAccessController struct {
	logger *slog.Logger
}

// NewLogAccessController creates a new LogAccessController
func NewLogAccessController(logger *slog.Logger) *LogAccessController {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LogAccessController{logger: logger}
}

func (l *LogAccessController) GrantAccess(
	_ context.Context,
	communityID, participantID string,
	level tier.Level,
) error {
	l.logger.Info(
		"granting access",
		"component", "access",
		"community", communityID,
		"participant", participantID,
		"tier", level,
	)
	return nil
}

func (l *LogAccessController) Evict(
	_ context.Context,
	communityID, participantID string,
) error {
	l.logger.Info(
		"revoking access",
		"component", "access",
		"community", communityID,
		"participant", participantID,
	)
	return nil
}

func (l *LogAccessController) Notify(
	_ context.Context,
	participantID, message string,
) error {
	l.logger.Info(
		"notifying participant",
		"component", "access",
		"participant", participantID,
		"message", message,
	)
	return nil
}
