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

package archive

import (
	"fmt"
	"io"
	"log/slog"
)

// sinkLogger gives the object store sinks a printf style logger
type sinkLogger struct {
	logger *slog.Logger
}

func newSinkLogger(logger *slog.Logger) *sinkLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &sinkLogger{logger: logger}
}

func (l *sinkLogger) Infof(msg string, args ...any) {
	l.logger.Info(
		fmt.Sprintf(msg, args...),
		"component", "archive",
	)
}

func (l *sinkLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(
		fmt.Sprintf(msg, args...),
		"component", "archive",
	)
}

func (l *sinkLogger) Errorf(msg string, args ...any) {
	l.logger.Error(
		fmt.Sprintf(msg, args...),
		"component", "archive",
	)
}
