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

package sqlite

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/types"
)

// SetProposal creates or updates a proposal index row
func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		UpdateAll: true,
	}).Create(proposal).Error
}

// GetProposals returns proposals ordered by number. When activeOnly is set,
// only proposals whose deadline is after now are returned
func (d *MetadataStoreSqlite) GetProposals(
	activeOnly bool,
	now int64,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Order("number")
	if activeOnly {
		query = query.Where("deadline > ?", now)
	}
	var ret []models.Proposal
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVote creates or updates the vote for a (proposal, voter) pair
func (d *MetadataStoreSqlite) SetVote(vote *models.Vote, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_number"},
			{Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"vote",
			"voting_power",
			"voted_by_proxy",
			"proxy",
			"cast_at",
		}),
	}).Create(vote).Error
}

func (d *MetadataStoreSqlite) DeleteVote(
	proposalNumber uint64,
	voter []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where(
		"proposal_number = ? AND voter = ?",
		proposalNumber,
		voter,
	).Delete(&models.Vote{}).Error
}

// GetVotes returns all votes on a proposal
func (d *MetadataStoreSqlite) GetVotes(
	proposalNumber uint64,
	txn types.Txn,
) ([]models.Vote, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	if result := db.Where("proposal_number = ?", proposalNumber).
		Order("id").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetStake(stake *models.Stake, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		UpdateAll: true,
	}).Create(stake).Error
}

func (d *MetadataStoreSqlite) SetDelegateProfile(
	profile *models.DelegateProfile,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "authority"}},
		UpdateAll: true,
	}).Create(profile).Error
}

func (d *MetadataStoreSqlite) DeleteDelegateProfile(
	authority []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("authority = ?", authority).
		Delete(&models.DelegateProfile{}).Error
}

// GetDelegateProfiles returns all active delegates
func (d *MetadataStoreSqlite) GetDelegateProfiles(
	txn types.Txn,
) ([]models.DelegateProfile, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.DelegateProfile
	if result := db.Where("is_active = ?", true).
		Order("registered_at, authority").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetDelegation(
	delegation *models.Delegation,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delegator"}},
		UpdateAll: true,
	}).Create(delegation).Error
}

func (d *MetadataStoreSqlite) DeleteDelegation(
	delegator []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("delegator = ?", delegator).
		Delete(&models.Delegation{}).Error
}

// GetDelegators returns the delegations pointing at a delegate
func (d *MetadataStoreSqlite) GetDelegators(
	delegate []byte,
	txn types.Txn,
) ([]models.Delegation, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Delegation
	if result := db.Where("delegate_target = ?", delegate).
		Order("delegated_at, delegator").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetUserStats(
	stats *models.UserStats,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user"}},
		UpdateAll: true,
	}).Create(stats).Error
}

// GetLeaderboard returns user stats ordered by descending score
func (d *MetadataStoreSqlite) GetLeaderboard(
	limit int,
	txn types.Txn,
) ([]models.UserStats, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.UserStats
	if result := db.Order("score DESC, last_vote_time, user").
		Limit(limit).
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetBadge(badge *models.Badge, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mint"}},
		UpdateAll: true,
	}).Create(badge).Error
}

// SetTokenBalance records the balance of an owner for a mint
func (d *MetadataStoreSqlite) SetTokenBalance(
	balance *models.TokenBalance,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "mint"},
			{Name: "owner"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(balance).Error
}

// GetTokenHolders returns the non-zero balances for a mint, largest first
func (d *MetadataStoreSqlite) GetTokenHolders(
	mint []byte,
	limit int,
	txn types.Txn,
) ([]models.TokenBalance, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TokenBalance
	if result := db.Where("mint = ? AND amount > 0", mint).
		Order("CAST(amount AS INTEGER) DESC, owner").
		Limit(limit).
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// ResetIndex removes every indexed row ahead of a rebuild from the blob store
func (d *MetadataStoreSqlite) ResetIndex(txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	session := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range models.MigrateModels {
		if result := session.Delete(model); result.Error != nil {
			return result.Error
		}
	}
	return nil
}
