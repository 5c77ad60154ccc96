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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/plugin"
	"github.com/blinklabs-io/pulsar/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/pulsar/database/types"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Governance index
	SetProposal(*models.Proposal, types.Txn) error
	GetProposals(
		bool, // activeOnly
		int64, // now
		types.Txn,
	) ([]models.Proposal, error)
	SetVote(*models.Vote, types.Txn) error
	DeleteVote(
		uint64, // proposal number
		[]byte, // voter
		types.Txn,
	) error
	GetVotes(uint64, types.Txn) ([]models.Vote, error)
	SetStake(*models.Stake, types.Txn) error
	SetDelegateProfile(*models.DelegateProfile, types.Txn) error
	DeleteDelegateProfile([]byte, types.Txn) error
	GetDelegateProfiles(types.Txn) ([]models.DelegateProfile, error)
	SetDelegation(*models.Delegation, types.Txn) error
	DeleteDelegation([]byte, types.Txn) error
	GetDelegators([]byte, types.Txn) ([]models.Delegation, error)
	SetUserStats(*models.UserStats, types.Txn) error
	GetLeaderboard(int, types.Txn) ([]models.UserStats, error)
	SetBadge(*models.Badge, types.Txn) error

	// Token index
	SetTokenBalance(*models.TokenBalance, types.Txn) error
	GetTokenHolders(
		[]byte, // mint
		int, // limit
		types.Txn,
	) ([]models.TokenBalance, error)

	// Helpers
	ResetIndex(types.Txn) error
}

// New returns the metadata store selected by name. The built-in sqlite store
// is constructed directly so that the node data dir, logger and metrics
// registry are honored
func New(
	pluginName, dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	if pluginName == "" || pluginName == sqlite.PluginName {
		return sqlite.New(dataDir, logger, promRegistry)
	}
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
