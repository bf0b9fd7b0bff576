package inmemdb

import (
	"context"

	"github.com/trezcool/nidhamu/core/rule"
)

type ruleRepository struct {
	db *DB
}

var _ rule.Repository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *DB) *ruleRepository {
	return &ruleRepository{db: db}
}

func (repo *ruleRepository) CreateRule(_ context.Context, rl rule.Rule) (rule.Rule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rules[rl.ID] = &rl
	return rl, nil
}

func (repo *ruleRepository) QueryAllRules(_ context.Context) ([]rule.Rule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rules := make([]rule.Rule, 0, len(repo.db.rules))
	for _, rl := range repo.db.rules {
		rules = append(rules, *rl)
	}
	return rules, nil
}

func (repo *ruleRepository) QueryRuleCodes(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	codes := make([]string, 0, len(repo.db.rules))
	for _, rl := range repo.db.rules {
		codes = append(codes, rl.Code)
	}
	return codes, nil
}

func (repo *ruleRepository) GetRuleByID(_ context.Context, id string) (rule.Rule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rl, ok := repo.db.rules[id]; ok {
		return *rl, nil
	}
	return rule.Rule{}, rule.ErrNotFound
}

func (repo *ruleRepository) UpdateRule(_ context.Context, rl rule.Rule) (rule.Rule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.rules[rl.ID]
	if !ok {
		return rule.Rule{}, rule.ErrNotFound
	}
	orig.Content = rl.Content
	orig.Points = rl.Points
	orig.IsBonus = rl.IsBonus
	orig.UpdatedAt = rl.UpdatedAt
	return *orig, nil
}

func (repo *ruleRepository) DeleteRuleByID(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.rules, id)
	return nil
}
