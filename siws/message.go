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

package siws

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Message represents the parsed fields of a sign-in message: a structured,
// human-readable text blob a wallet signs to prove key ownership. Optional
// fields are left empty when absent from the raw message.
type Message struct {
	Domain   string
	URI      string
	Version  string
	ChainID  string
	Nonce    string
	IssuedAt string
}

// IssuedAtTime parses the IssuedAt string into a time.Time value.
func (m *Message) IssuedAtTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, m.IssuedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"parsing Message.IssuedAt: %w",
			err,
		)
	}
	return t, nil
}

// ParseMessage parses a raw sign-in message into its fields using
// best-effort line scanning. Missing fields are tolerated here; the
// verifier decides which fields are required.
func ParseMessage(raw string) Message {
	var msg Message
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.Contains(line, "URI:"):
			msg.URI = fieldValue(line, "URI:")
		case strings.Contains(line, "Issued At:"):
			msg.IssuedAt = fieldValue(line, "Issued At:")
		case strings.Contains(line, "Nonce:"):
			msg.Nonce = fieldValue(line, "Nonce:")
		case strings.Contains(line, "Chain ID:"):
			msg.ChainID = fieldValue(line, "Chain ID:")
		case strings.Contains(line, "Version:"):
			msg.Version = fieldValue(line, "Version:")
		}
	}
	// Derive domain from the URI host
	if msg.URI != "" {
		if u, err := url.Parse(msg.URI); err == nil && u.Hostname() != "" {
			msg.Domain = u.Hostname()
		} else {
			msg.Domain = "unknown"
		}
	}
	return msg
}

func fieldValue(line, label string) string {
	_, after, ok := strings.Cut(line, label)
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}
