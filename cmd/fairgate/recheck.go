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

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairgate-io/fairgate/internal/config"
	"github.com/fairgate-io/fairgate/internal/node"
	"github.com/spf13/cobra"
)

func recheckRun(ctx context.Context, args []string, cfg *config.Config) {
	communityID := args[0]
	var participantID string
	if len(args) >= 2 {
		participantID = args[1]
	}

	logger := commonRun()

	// Allow the sweep to be interrupted cleanly
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	if err := node.Recheck(
		signalCtx,
		cfg,
		logger,
		communityID,
		participantID,
	); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func recheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recheck <community-id> [participant-id]",
		Short: "Run a one-shot re-check of a community or single member",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			recheckRun(cmd.Context(), args, cfg)
		},
	}
	return cmd
}
