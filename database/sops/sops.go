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

// Package sops encrypts state snapshots at rest with SOPS using master keys
// configured from the environment.
package sops

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	sopsage "github.com/getsops/sops/v3/age"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

const (
	EnvGcpKmsResourceId = "PULSAR_GCP_KMS_RESOURCE_ID"
	EnvAwsKmsKeyArns    = "PULSAR_AWS_KMS_KEY_ARNS"
	EnvAwsKmsProfile    = "PULSAR_AWS_KMS_PROFILE"
	EnvAgeRecipients    = "PULSAR_AGE_RECIPIENTS"
)

var ErrNoMasterKeys = errors.New(
	"SOPS requires at least one master key to encrypt: set " +
		EnvGcpKmsResourceId + ", " + EnvAwsKmsKeyArns + " and/or " + EnvAgeRecipients,
)

// Enabled reports whether any master key is configured
func Enabled() bool {
	for _, env := range []string{EnvGcpKmsResourceId, EnvAwsKmsKeyArns, EnvAgeRecipients} {
		if os.Getenv(env) != "" {
			return true
		}
	}
	return false
}

// Decrypt reverses Encrypt. Age identities are read by SOPS from
// SOPS_AGE_KEY or SOPS_AGE_KEY_FILE
func Decrypt(data []byte) ([]byte, error) {
	plain, err := decrypt.Data(data, "binary")
	if err != nil {
		return nil, err
	}
	ret, err := base64.StdEncoding.DecodeString(string(plain))
	if err != nil {
		return nil, fmt.Errorf("decode decrypted payload: %w", err)
	}
	return ret, nil
}

// Encrypt wraps arbitrary bytes in a SOPS binary document. The payload is
// base64 encoded first, since the binary store only carries valid UTF-8
func Encrypt(data []byte) ([]byte, error) {
	storeConfig := &config.JSONBinaryStoreConfig{}
	input := jsonstore.NewBinaryStore(storeConfig)
	output := jsonstore.NewBinaryStore(storeConfig)

	encoded := []byte(base64.StdEncoding.EncodeToString(data))
	branches, err := input.LoadPlainFile(encoded)
	if err != nil {
		return nil, fmt.Errorf("error loading data: %w", err)
	}
	tree := sopsapi.Tree{Branches: branches}
	keyGroups, err := getMasterKeyGroupsFromEnv()
	if err != nil {
		return nil, err
	}
	tree.Metadata = sopsapi.Metadata{
		KeyGroups: keyGroups,
		Version:   version.Version,
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed generating data key: %v", errs)
	}
	if err := scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}); err != nil {
		return nil, fmt.Errorf("failed encrypt: %w", err)
	}
	encrypted, err := output.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("failed output: %w", err)
	}
	return encrypted, nil
}

func getMasterKeyGroupsFromEnv() ([]sopsapi.KeyGroup, error) {
	keyGroups := []sopsapi.KeyGroup{}

	if rid := os.Getenv(EnvGcpKmsResourceId); rid != "" {
		keys := []skeys.MasterKey{}
		for _, k := range gcpkms.MasterKeysFromResourceIDString(rid) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}

	if arns := os.Getenv(EnvAwsKmsKeyArns); arns != "" {
		keys := []skeys.MasterKey{}
		profile := os.Getenv(EnvAwsKmsProfile)
		for _, k := range awskms.MasterKeysFromArnString(arns, nil, profile) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}

	if recipients := os.Getenv(EnvAgeRecipients); recipients != "" {
		ageKeys, err := sopsage.MasterKeysFromRecipients(recipients)
		if err != nil {
			return nil, fmt.Errorf("invalid age recipients: %w", err)
		}
		keys := []skeys.MasterKey{}
		for _, k := range ageKeys {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}

	if len(keyGroups) == 0 {
		return nil, ErrNoMasterKeys
	}
	return keyGroups, nil
}
