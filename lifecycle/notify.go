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
	"fmt"

	"github.com/fairgate-io/fairgate/tier"
)

func welcomeMessage(communityName string, level tier.Level) string {
	return fmt.Sprintf(
		"Welcome to %s! Your wallet has been verified and you have been granted the %s tier.",
		communityName,
		level,
	)
}

func rejectionMessage(communityName string, score, required int) string {
	return fmt.Sprintf(
		"Your wallet was verified, but your reputation score of %d does not meet the minimum of %d required to join %s.",
		score,
		required,
		communityName,
	)
}

func promotionMessage(
	communityName string,
	oldLevel, newLevel tier.Level,
) string {
	return fmt.Sprintf(
		"Good news! Your tier in %s has been upgraded from %s to %s.",
		communityName,
		oldLevel,
		newLevel,
	)
}

func demotionMessage(
	communityName string,
	oldLevel, newLevel tier.Level,
) string {
	return fmt.Sprintf(
		"Your tier in %s has changed from %s to %s based on your current reputation score.",
		communityName,
		oldLevel,
		newLevel,
	)
}

func evictionMessage(communityName string) string {
	return fmt.Sprintf(
		"Your reputation score has fallen below the minimum required for %s and your access has been removed. You can verify again once your score recovers.",
		communityName,
	)
}
