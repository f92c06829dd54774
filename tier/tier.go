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

package tier

import "time"

// Level represents a discrete reputation band derived from a numeric
// score and per-community thresholds.
type Level string

const (
	None   Level = "none"
	Bronze Level = "bronze"
	Silver Level = "silver"
	Gold   Level = "gold"
)

// Valid returns true if the Level is a known tier value.
func (l Level) Valid() bool {
	switch l {
	case None, Bronze, Silver, Gold:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the Level, with None lowest.
// Unknown levels rank below None.
func (l Level) Rank() int {
	switch l {
	case Bronze:
		return 1
	case Silver:
		return 2
	case Gold:
		return 3
	case None:
		return 0
	default:
		return -1
	}
}

// Thresholds holds the per-community score cutoffs for each tier.
// Callers must supply ordered values (Bronze <= Silver <= Gold).
type Thresholds struct {
	Bronze int
	Silver int
	Gold   int
}

// Ordered returns true if the thresholds satisfy Bronze <= Silver <= Gold.
func (t Thresholds) Ordered() bool {
	return t.Bronze <= t.Silver && t.Silver <= t.Gold
}

// ForScore maps a score onto a tier Level, evaluated highest-first with
// inclusive lower bounds: a score equal to a threshold belongs to that tier.
func ForScore(score int, t Thresholds) Level {
	switch {
	case score >= t.Gold:
		return Gold
	case score >= t.Silver:
		return Silver
	case score >= t.Bronze:
		return Bronze
	default:
		return None
	}
}

// Score bands used to pick cache expiry for a fetched score. Higher
// reputation wallets change status less often and are cheaper to leave
// stale, so they get a longer TTL.
const (
	longTTLScore   = 700
	mediumTTLScore = 500
)

// CacheTTL returns the cache expiry for a score based on its band:
// >=700 6h, >=500 3h, otherwise 1h.
func CacheTTL(score int) time.Duration {
	switch {
	case score >= longTTLScore:
		return 6 * time.Hour
	case score >= mediumTTLScore:
		return 3 * time.Hour
	default:
		return time.Hour
	}
}
