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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchScore(t *testing.T) {
	var gotWallet, gotAPIKey string
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = r.URL.Query().Get("wallet")
			gotAPIKey = r.Header.Get("X-Api-Key")
			fmt.Fprintf(
				w,
				`{"wallet":%q,"score":640}`,
				gotWallet,
			)
		}),
	)
	defer srv.Close()
	client := NewClient(srv.URL, "test-key")
	score, err := client.FetchScore(context.Background(), "wallet-abc")
	require.NoError(t, err)
	assert.Equal(t, 640, score)
	assert.Equal(t, "wallet-abc", gotWallet)
	assert.Equal(t, "test-key", gotAPIKey)
}

func TestClientFetchScoreStatusError(t *testing.T) {
	testDefs := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, testDef := range testDefs {
		t.Run(fmt.Sprintf("status %d", testDef.status), func(t *testing.T) {
			srv := httptest.NewServer(
				http.HandlerFunc(
					func(w http.ResponseWriter, r *http.Request) {
						http.Error(w, "nope", testDef.status)
					},
				),
			)
			defer srv.Close()
			client := NewClient(srv.URL, "test-key")
			_, err := client.FetchScore(
				context.Background(),
				"wallet-abc",
			)
			require.Error(t, err)
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, testDef.status, statusErr.StatusCode)
			assert.Equal(t, testDef.retryable, statusErr.Retryable())
		})
	}
}

func TestClientFetchScoreBadJSON(t *testing.T) {
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}),
	)
	defer srv.Close()
	client := NewClient(srv.URL, "test-key")
	_, err := client.FetchScore(context.Background(), "wallet-abc")
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
