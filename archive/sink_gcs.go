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
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsSink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *sinkLogger
}

func newGCSSink(
	ctx context.Context,
	loc location,
	credentialsFile string,
	logger *sinkLogger,
) (*gcsSink, error) {
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("gcs sink: credentials file: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs sink: failed in creating storage client: %w", err)
	}
	return &gcsSink{
		client: client,
		bucket: client.Bucket(loc.bucket),
		prefix: loc.prefix,
		logger: logger,
	}, nil
}

func (s *gcsSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	key := s.prefix + name
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	if err := w.Close(); err != nil {
		s.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	s.logger.Infof("gcs put %q ok (%d bytes)", key, len(data))
	return nil
}

func (s *gcsSink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	key := s.prefix + name
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		s.logger.Errorf("gcs get %q failed: %v", key, err)
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.Errorf("gcs read %q failed: %v", key, err)
		return nil, err
	}
	s.logger.Infof("gcs get %q ok (%d bytes)", key, len(data))
	return data, nil
}

func (s *gcsSink) Close() error {
	return s.client.Close()
}
