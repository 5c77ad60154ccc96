// Copyright 2025 Blink Labs Software
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

package pulsar_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar"
	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/event"
	"github.com/blinklabs-io/pulsar/governance"
)

var testAuthority = address.Derive([]byte("node-test"), []byte("authority"))

func getStatus(t *testing.T, url string) int {
	t.Helper()
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestNodeStartStop(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	n, err := pulsar.New(pulsar.NewConfig(
		pulsar.WithMintAuthority(testAuthority),
		pulsar.WithApiListenAddress("127.0.0.1:0"),
		pulsar.WithPrometheusRegistry(prometheus.NewRegistry()),
		pulsar.WithClock(clk),
		pulsar.WithShutdownTimeout(5*time.Second),
	))
	require.NoError(t, err)
	require.NoError(t, n.Start(t.Context()))
	t.Cleanup(func() { _ = n.Stop() })
	require.Error(t, n.Start(t.Context()))

	baseURL := "http://" + n.ApiAddr()
	assert.Equal(t, http.StatusNotFound, getStatus(t, baseURL+"/api/v1/registry"))

	initialized := make(chan event.Event, 1)
	n.EventBus().SubscribeFunc(governance.InitializedEventType, func(evt event.Event) {
		initialized <- evt
	})
	auth := n.Authority()
	require.NotNil(t, auth)
	require.NoError(t, auth.Initialize(t.Context(), testAuthority, address.DefaultTokenMint()))
	select {
	case <-initialized:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initialized event")
	}
	assert.Equal(t, http.StatusOK, getStatus(t, baseURL+"/api/v1/registry"))
	assert.Equal(t, http.StatusOK, getStatus(t, baseURL+"/health"))

	require.NoError(t, n.Stop())
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestNodeRequiresMintAuthority(t *testing.T) {
	n, err := pulsar.New(pulsar.NewConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Stop() })
	err = n.Start(t.Context())
	require.ErrorContains(t, err, "no mint authority")
	assert.Empty(t, n.ApiAddr())
}

func TestNodeReopensPersistentState(t *testing.T) {
	dataDir := t.TempDir()
	newNode := func() *pulsar.Node {
		n, err := pulsar.New(pulsar.NewConfig(
			pulsar.WithDatabasePath(dataDir),
			pulsar.WithMintAuthority(testAuthority),
		))
		require.NoError(t, err)
		return n
	}
	first := newNode()
	require.NoError(t, first.Start(t.Context()))
	require.NoError(t, first.Authority().Initialize(t.Context(), testAuthority, address.DefaultTokenMint()))
	require.NoError(t, first.Stop())

	second := newNode()
	require.NoError(t, second.Start(t.Context()))
	t.Cleanup(func() { _ = second.Stop() })
	reg, err := second.Authority().GetGlobalRegistry()
	require.NoError(t, err)
	assert.Equal(t, testAuthority, reg.Admin)
	assert.True(t, reg.SystemEnabled)
}
