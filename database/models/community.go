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

package models

import "github.com/fairgate-io/fairgate/tier"

// Community holds the per-community gating configuration: tier score
// thresholds and lifecycle behavior flags.
type Community struct {
	ID              uint   `gorm:"primarykey"`
	CommunityID     string `gorm:"uniqueIndex;size:64"`
	Name            string `gorm:"size:255"`
	BronzeThreshold int
	SilverThreshold int
	GoldThreshold   int
	AutoEvict       bool
	RecheckEnabled  bool `gorm:"default:true"`
}

func (Community) TableName() string {
	return "community"
}

// Thresholds returns the community's tier thresholds in typed form
func (c *Community) Thresholds() tier.Thresholds {
	return tier.Thresholds{
		Bronze: c.BronzeThreshold,
		Silver: c.SilverThreshold,
		Gold:   c.GoldThreshold,
	}
}
