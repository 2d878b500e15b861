package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/commission/domain"
	directorydomain "github.com/bancanet/bancanet/internal/directory/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const policyCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log       *zap.Logger
	Repo      domain.Repository
	Directory directorydomain.Repository
}

type Service struct {
	log       *zap.Logger
	repo      domain.Repository
	directory directorydomain.Repository
	cache     *policyCache
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("commission.resolver"),
		repo:      p.Repo,
		directory: p.Directory,
		cache:     newPolicyCache(policyCacheTTL),
	}
}

// Resolve scans the policy chain in specificity order and returns the
// first rule match. Rule order within a policy is authoritative, not
// "most specific rule first". A policy whose rules all miss does not
// contribute its defaultPercent; resolution moves on to the next level,
// and a full miss yields zero commission with origin none.
func (s *Service) Resolve(input domain.BetInput, levels []domain.PolicyLevel) domain.Resolution {
	for _, level := range levels {
		if level.Policy == nil {
			continue
		}
		for _, rule := range level.Policy.Rules {
			if !rule.Matches(input.LotteryID, input.BetType, input.MultiplierX) {
				continue
			}
			return domain.Resolution{
				Percent: rule.Percent,
				Amount:  domain.Round2(input.Amount.Mul(rule.Percent).Div(decimal.NewFromInt(100))),
				Origin:  level.Origin,
				RuleID:  rule.ID,
			}
		}
	}
	return domain.Resolution{
		Percent: decimal.Zero,
		Amount:  decimal.Zero,
		Origin:  domain.OriginNone,
	}
}

func (s *Service) PriceBetLine(ctx context.Context, sellerID snowflake.ID, at time.Time, input domain.BetInput) (domain.Resolution, error) {
	levels, err := s.effectivePolicies(ctx, sellerID, at)
	if err != nil {
		return domain.Resolution{}, err
	}
	return s.Resolve(input, levels), nil
}

func (s *Service) Invalidate(kind domain.Origin, ownerID snowflake.ID) {
	s.cache.Invalidate(kind, ownerID)
}

// effectivePolicies assembles the seller → window → bank chain. A policy
// that fails to load is treated as absent so pricing never blocks on a
// bad edit elsewhere in the hierarchy.
func (s *Service) effectivePolicies(ctx context.Context, sellerID snowflake.ID, at time.Time) ([]domain.PolicyLevel, error) {
	chain, err := s.directory.SellerChain(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	refs := []struct {
		kind domain.Origin
		id   snowflake.ID
	}{
		{domain.OriginSeller, chain.SellerID},
		{domain.OriginWindow, chain.WindowID},
		{domain.OriginBank, chain.BankID},
	}

	levels := make([]domain.PolicyLevel, 0, len(refs))
	for _, ref := range refs {
		policy, err := s.loadPolicy(ctx, ref.kind, ref.id, at)
		if err != nil {
			s.log.Warn("policy load failed, treating as absent",
				zap.String("kind", string(ref.kind)),
				zap.String("owner_id", ref.id.String()),
				zap.Error(err),
			)
			policy = nil
		}
		levels = append(levels, domain.PolicyLevel{Origin: ref.kind, Policy: policy})
	}
	return levels, nil
}

func (s *Service) loadPolicy(ctx context.Context, kind domain.Origin, ownerID snowflake.ID, at time.Time) (*domain.Policy, error) {
	if policy, ok := s.cache.Get(kind, ownerID); ok {
		return policy, nil
	}
	policy, err := s.repo.FindCurrent(ctx, kind, ownerID, at)
	if err != nil {
		return nil, err
	}
	s.cache.Put(kind, ownerID, policy)
	return policy, nil
}
