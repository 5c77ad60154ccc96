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
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/gorilla/mux"
)

// HealthServiceName is the service reported by the gRPC health endpoint
const HealthServiceName = "pulsar.governance.v1"

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "no such route")
	})

	compress1KB := connect.WithCompressMinBytes(1024)
	healthPath, healthHandler := grpchealth.NewHandler(
		grpchealth.NewStaticChecker(HealthServiceName),
		compress1KB,
	)
	r.PathPrefix(healthPath).Handler(healthHandler)
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	reflectPath, reflectHandler := grpcreflect.NewHandlerV1(reflector, compress1KB)
	r.PathPrefix(reflectPath).Handler(reflectHandler)
	reflectAlphaPath, reflectAlphaHandler := grpcreflect.NewHandlerV1Alpha(reflector, compress1KB)
	r.PathPrefix(reflectAlphaPath).Handler(reflectAlphaHandler)

	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.handleRoot)
	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.handleHealth)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Methods(http.MethodGet).Path("/registry").HandlerFunc(s.handleRegistry)
	v1.Methods(http.MethodGet).Path("/proposals").HandlerFunc(s.handleListProposals)
	v1.Methods(http.MethodGet).Path("/proposals/{number:[0-9]+}").HandlerFunc(s.handleProposal)
	v1.Methods(http.MethodGet).Path("/proposals/{number:[0-9]+}/votes").HandlerFunc(s.handleListVotes)
	v1.Methods(http.MethodGet).Path("/proposals/{number:[0-9]+}/voters/{voter}").HandlerFunc(s.handleVoterRecord)
	v1.Methods(http.MethodGet).Path("/proposals/{number:[0-9]+}/escrow").HandlerFunc(s.handleEscrow)
	v1.Methods(http.MethodGet).Path("/stakes/{owner}").HandlerFunc(s.handleStake)
	v1.Methods(http.MethodGet).Path("/delegates").HandlerFunc(s.handleListDelegates)
	v1.Methods(http.MethodGet).Path("/delegates/{id}").HandlerFunc(s.handleDelegate)
	v1.Methods(http.MethodGet).Path("/delegates/{id}/delegators").HandlerFunc(s.handleListDelegators)
	v1.Methods(http.MethodGet).Path("/delegations/{id}").HandlerFunc(s.handleDelegation)
	v1.Methods(http.MethodGet).Path("/stats/{id}").HandlerFunc(s.handleUserStats)
	v1.Methods(http.MethodGet).Path("/leaderboard").HandlerFunc(s.handleLeaderboard)
	v1.Methods(http.MethodGet).Path("/holders").HandlerFunc(s.handleHolders)
	v1.Methods(http.MethodGet).Path("/balances/{owner}").HandlerFunc(s.handleBalance)
	v1.Methods(http.MethodGet).Path("/records/{address}").HandlerFunc(s.handleRecord)
	v1.Methods(http.MethodPost).Path("/transactions").HandlerFunc(s.handleSubmitTransaction)
	return r
}
