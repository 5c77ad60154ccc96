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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
	"github.com/blinklabs-io/pulsar/internal/version"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	// maxTransactionSize bounds the request body of a submitted transaction
	maxTransactionSize = 1 << 20
)

var errInvalidParameter = errors.New("invalid parameter")

func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, governance.ErrInvalidArgument.Code, msg)
}

func pathNumber(r *http.Request) (uint64, error) {
	ret, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		return 0, errInvalidParameter
	}
	return ret, nil
}

func pathAddress(r *http.Request, name string) (address.Address, error) {
	return address.FromHex(mux.Vars(r)[name])
}

// queryLimit parses the limit query parameter, clamped to maxListLimit
func queryLimit(r *http.Request) (int, error) {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit < 1 {
		return 0, errInvalidParameter
	}
	return min(limit, maxListLimit), nil
}

func (s *Server) proposalResponse(p *governance.Proposal) ProposalResponse {
	return ProposalResponse{
		Proposal: p,
		State:    p.TreasuryState(s.clock.Now().Unix()),
	}
}

// handleRoot handles GET / and returns API metadata
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "pulsar",
		Version: version.GetVersionString(),
	})
}

// handleHealth handles GET /health. The service is healthy when the
// registry can be read
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.authority.GetGlobalRegistry(); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	reg, err := s.authority.GetGlobalRegistry()
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve registry")
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	proposals, err := s.authority.ListProposals(activeOnly)
	if err != nil {
		s.writeFailure(w, err, "failed to list proposals")
		return
	}
	SetPaginationHeaders(w, len(proposals), params)
	page := paginate(proposals, params)
	ret := make([]ProposalResponse, 0, len(page))
	for _, p := range page {
		ret = append(ret, s.proposalResponse(p))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeBadRequest(w, "invalid proposal number")
		return
	}
	p, err := s.authority.GetProposal(number)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve proposal")
		return
	}
	writeJSON(w, http.StatusOK, s.proposalResponse(p))
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeBadRequest(w, "invalid proposal number")
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	votes, err := s.authority.ListVotes(number)
	if err != nil {
		s.writeFailure(w, err, "failed to list votes")
		return
	}
	SetPaginationHeaders(w, len(votes), params)
	writeJSON(w, http.StatusOK, paginate(votes, params))
}

func (s *Server) handleVoterRecord(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeBadRequest(w, "invalid proposal number")
		return
	}
	voter, err := pathAddress(r, "voter")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rec, err := s.authority.GetVoterRecord(number, voter)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve vote")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEscrow(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeBadRequest(w, "invalid proposal number")
		return
	}
	amount, err := s.authority.GetEscrowBalance(number)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve escrow balance")
		return
	}
	writeJSON(w, http.StatusOK, EscrowResponse{Proposal: number, Amount: amount})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rec, err := s.authority.GetStakeRecord(owner)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve stake")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListDelegates(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	delegates, err := s.authority.ListDelegates()
	if err != nil {
		s.writeFailure(w, err, "failed to list delegates")
		return
	}
	SetPaginationHeaders(w, len(delegates), params)
	writeJSON(w, http.StatusOK, paginate(delegates, params))
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	profile, err := s.authority.GetDelegateProfile(id)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve delegate")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleListDelegators(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	delegators, err := s.authority.ListDelegators(id)
	if err != nil {
		s.writeFailure(w, err, "failed to list delegators")
		return
	}
	SetPaginationHeaders(w, len(delegators), params)
	writeJSON(w, http.StatusOK, paginate(delegators, params))
}

func (s *Server) handleDelegation(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rec, err := s.authority.GetDelegationRecord(id)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve delegation")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	stats, err := s.authority.GetUserStats(id)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve user stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	board, err := s.authority.Leaderboard(limit)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleHolders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	holders, err := s.authority.TopHolders(limit)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve token holders")
		return
	}
	writeJSON(w, http.StatusOK, holders)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	amount, err := s.authority.GetBalance(owner)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve balance")
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Owner: owner, Amount: amount})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	kind, rec, err := s.authority.GetRecord(addr)
	if err != nil {
		s.writeFailure(w, err, "failed to retrieve record")
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{
		Address: addr,
		Kind:    kind.String(),
		Record:  rec,
	})
}

// handleSubmitTransaction handles POST /api/v1/transactions
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx governance.SignedTransaction
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTransactionSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			governance.ErrInvalidInstruction.Code,
			"decode transaction: "+err.Error(),
		)
		return
	}
	receipt, err := s.authority.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		s.writeFailure(w, err, "failed to submit transaction")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
