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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidName      = errors.New("invalid snapshot name")
	ErrInvalidLocation  = errors.New("invalid snapshot location")
)

// Sink stores whole snapshots by name
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Close() error
}

type sinkConfig struct {
	logger             *slog.Logger
	gcsCredentialsFile string
	s3Region           string
}

type SinkOptionFunc func(*sinkConfig)

func WithSinkLogger(logger *slog.Logger) SinkOptionFunc {
	return func(c *sinkConfig) {
		c.logger = logger
	}
}

// WithGCSCredentialsFile sets a service account file for gs:// locations
func WithGCSCredentialsFile(file string) SinkOptionFunc {
	return func(c *sinkConfig) {
		c.gcsCredentialsFile = file
	}
}

// WithS3Region overrides the region from the AWS default config
func WithS3Region(region string) SinkOptionFunc {
	return func(c *sinkConfig) {
		c.s3Region = region
	}
}

type location struct {
	scheme string
	bucket string
	prefix string
}

// OpenSink opens the snapshot location described by rawURL: a local
// directory (plain path or file://), gs://bucket[/prefix] or
// s3://bucket[/prefix]
func OpenSink(ctx context.Context, rawURL string, opts ...SinkOptionFunc) (Sink, error) {
	cfg := &sinkConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	loc, err := parseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	logger := newSinkLogger(cfg.logger)
	switch loc.scheme {
	case "gs":
		return newGCSSink(ctx, loc, cfg.gcsCredentialsFile, logger)
	case "s3":
		return newS3Sink(ctx, loc, cfg.s3Region, logger)
	default:
		return NewFileSink(loc.prefix)
	}
}

func parseLocation(rawURL string) (location, error) {
	if rawURL == "" {
		return location{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	scheme, rest, found := strings.Cut(rawURL, "://")
	if !found {
		return location{scheme: "file", prefix: rawURL}, nil
	}
	switch scheme {
	case "file":
		if rest == "" {
			return location{}, fmt.Errorf("%w: missing path", ErrInvalidLocation)
		}
		return location{scheme: scheme, prefix: rest}, nil
	case "gs", "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return location{}, fmt.Errorf("%w: missing bucket", ErrInvalidLocation)
		}
		prefix = strings.Trim(prefix, "/")
		if prefix != "" {
			prefix += "/"
		}
		return location{scheme: scheme, bucket: bucket, prefix: prefix}, nil
	default:
		return location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocation, scheme)
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || path.Base(name) != name ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
