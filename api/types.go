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

package api

import (
	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
)

type Config struct {
	ListenAddress string
	// MaxConnections limits concurrent client connections. Zero means no
	// limit
	MaxConnections int
	ReuseAddress   bool
}

// RootResponse is returned by GET /
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type BalanceResponse struct {
	Owner  address.Address `json:"owner"`
	Amount uint64          `json:"amount"`
}

type EscrowResponse struct {
	Proposal uint64 `json:"proposal"`
	Amount   uint64 `json:"amount"`
}

// ProposalResponse adds the derived treasury state to a proposal
type ProposalResponse struct {
	*governance.Proposal
	State governance.TreasuryState `json:"state"`
}

// RecordResponse wraps any record looked up by address
type RecordResponse struct {
	Address address.Address `json:"address"`
	Kind    string          `json:"kind"`
	Record  any             `json:"record"`
}
