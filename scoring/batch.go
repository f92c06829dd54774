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

package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
)

const (
	// DefaultBatchConcurrency bounds concurrent provider requests so a
	// large batch does not trip the provider's rate limiting
	DefaultBatchConcurrency = 10
	DefaultBatchCooldown    = time.Second
)

// BatchResult holds the outcome of a batch score fetch. Failed wallets
// appear in Errors and are absent from Scores.
type BatchResult struct {
	Scores map[string]int
	Errors map[string]error
}

// BatchScores fetches scores for many wallets at once, running at most
// the configured concurrency at a time with a cooldown pause between
// chunks. A failure for one wallet never aborts the rest of the batch.
func (r *Resilient) BatchScores(
	ctx context.Context,
	wallets []string,
) (*BatchResult, error) {
	result := &BatchResult{
		Scores: make(map[string]int),
		Errors: make(map[string]error),
	}
	var mu sync.Mutex
	for start := 0; start < len(wallets); start += r.batchConcurrency {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+r.batchConcurrency, len(wallets))
		chunk := wallets[start:end]
		wp := workerpool.New(r.batchConcurrency)
		for _, wallet := range chunk {
			wp.Submit(func() {
				score, err := r.ScoreForWithCache(ctx, wallet)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Errors[wallet] = err
					return
				}
				result.Scores[wallet] = score
			})
		}
		wp.StopWait()
		if end < len(wallets) {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(r.batchCooldown):
			}
		}
	}
	return result, nil
}
