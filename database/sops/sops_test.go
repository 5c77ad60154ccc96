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

package sops_test

import (
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/database/sops"
)

func TestEncryptRequiresKeys(t *testing.T) {
	t.Setenv(sops.EnvGcpKmsResourceId, "")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	t.Setenv(sops.EnvAgeRecipients, "")
	assert.False(t, sops.Enabled())
	_, err := sops.Encrypt([]byte("data"))
	require.ErrorIs(t, err, sops.ErrNoMasterKeys)
}

func TestAgeRoundTrip(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv(sops.EnvGcpKmsResourceId, "")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	t.Setenv(sops.EnvAgeRecipients, identity.Recipient().String())
	t.Setenv("SOPS_AGE_KEY", identity.String())
	assert.True(t, sops.Enabled())
	// Binary payloads that aren't valid UTF-8 must survive
	payload := []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0xff, 0xfe}
	encrypted, err := sops.Encrypt(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encrypted), string(payload))
	decrypted, err := sops.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, payload, decrypted)
}
