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
	"errors"
	"net/http"

	"github.com/blinklabs-io/pulsar/governance"
)

// statusForCode maps a governance error tag to an HTTP status
func statusForCode(code string) int {
	switch code {
	case governance.ErrUnauthorized.Code, governance.ErrInvalidSignature.Code:
		return http.StatusForbidden
	case governance.ErrAccountNotInitialized.Code:
		return http.StatusNotFound
	case governance.ErrAlreadyVoted.Code,
		governance.ErrAlreadyClaimed.Code,
		governance.ErrDuplicateTransaction.Code,
		governance.ErrAlreadyInitialized.Code,
		governance.ErrAlreadyExecuted.Code:
		return http.StatusConflict
	case governance.ErrSystemOffline.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// writeError writes an error response
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeFailure reports err, using its governance tag when it has one.
// Untagged errors are logged and hidden behind a 500
func (s *Server) writeFailure(w http.ResponseWriter, err error, msg string) {
	var govErr *governance.Error
	if errors.As(err, &govErr) {
		writeError(w, statusForCode(govErr.Code), govErr.Code, err.Error())
		return
	}
	s.logger.Error(msg, "error", err)
	writeError(
		w,
		http.StatusInternalServerError,
		"Internal Server Error",
		msg,
	)
}
