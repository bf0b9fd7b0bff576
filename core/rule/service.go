package rule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nidhamu/core"
)

var ErrNotFound = core.NewNotFoundError("rule not found")

type (
	Repository interface {
		CreateRule(ctx context.Context, rl Rule) (Rule, error)
		QueryAllRules(ctx context.Context) ([]Rule, error)
		QueryRuleCodes(ctx context.Context) ([]string, error)
		GetRuleByID(ctx context.Context, id string) (Rule, error)
		UpdateRule(ctx context.Context, rl Rule) (Rule, error)
		DeleteRuleByID(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nr NewRule) (Rule, error) {
	codes, err := svc.repo.QueryRuleCodes(ctx)
	if err != nil {
		return Rule{}, err
	}
	now := time.Now().UTC()
	rl := Rule{
		ID:        uuid.New().String(),
		Code:      core.NextCode(CodePrefix, codes),
		Content:   nr.Content,
		Points:    nr.Points,
		IsBonus:   nr.IsBonus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateRule(ctx, rl)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Rule, error) {
	return svc.repo.QueryAllRules(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Rule, error) {
	return svc.repo.GetRuleByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRule) (Rule, error) {
	rl, err := svc.repo.GetRuleByID(ctx, id)
	if err != nil {
		return Rule{}, err
	}
	if ur.Content != "" {
		rl.Content = ur.Content
	}
	if ur.Points > 0 {
		rl.Points = ur.Points
	}
	if ur.IsBonus != nil {
		rl.IsBonus = *ur.IsBonus
	}
	rl.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRule(ctx, rl)
}

// Delete removes the rule. Record forms referencing it are left in place;
// their later reversal then counts as zero contribution (see record.Service).
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetRuleByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteRuleByID(ctx, id)
}
