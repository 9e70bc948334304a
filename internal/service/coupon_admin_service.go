package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// CouponInput 管理端创建/更新优惠券的入参
type CouponInput struct {
	Code           string   `json:"code" binding:"required"`
	Type           string   `json:"type" binding:"required"`
	Value          string   `json:"value" binding:"required"`
	TargetPlans    []string `json:"target_plans"`
	MinAmount      string   `json:"min_amount"`
	MaxDiscount    string   `json:"max_discount"`
	ValidFrom      *string  `json:"valid_from"`
	ValidUntil     *string  `json:"valid_until"`
	MaxUses        int      `json:"max_uses"`
	MaxUsesPerUser int      `json:"max_uses_per_user"`
	IsActive       *bool    `json:"is_active"`
}

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	catalog    *PlanCatalog
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository, catalog *PlanCatalog) *CouponAdminService {
	return &CouponAdminService{couponRepo: couponRepo, usageRepo: usageRepo, catalog: catalog}
}

// Create 创建优惠券
func (s *CouponAdminService) Create(input *CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{IsActive: true}
	if err := s.apply(coupon, input); err != nil {
		return nil, err
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	logger.Infow("coupon_created", "code", coupon.Code, "type", coupon.Type)
	return coupon, nil
}

// Update 更新优惠券（已用次数不可改写）
func (s *CouponAdminService) Update(id uint, input *CouponInput) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(coupon, input); err != nil {
		return nil, err
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	logger.Infow("coupon_updated", "coupon_id", id, "code", coupon.Code)
	return coupon, nil
}

// Deactivate 停用优惠券
func (s *CouponAdminService) Deactivate(id uint) error {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	coupon.IsActive = false
	if err := s.couponRepo.Update(coupon); err != nil {
		return err
	}
	logger.Infow("coupon_deactivated", "coupon_id", id, "code", coupon.Code)
	return nil
}

// List 分页查询优惠券
func (s *CouponAdminService) List(offset, limit int, activeOnly bool) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(offset, limit, activeOnly)
}

// Usages 分页查询核销记录
func (s *CouponAdminService) Usages(couponID uint, offset, limit int) ([]models.CouponUsage, int64, error) {
	return s.usageRepo.ListByCoupon(couponID, offset, limit)
}

// apply 校验入参并写入模型
func (s *CouponAdminService) apply(coupon *models.Coupon, input *CouponInput) error {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrCouponRuleInvalid)
	}
	value, err := decimal.NewFromString(input.Value)
	if err != nil {
		return fmt.Errorf("%w: value must be decimal", ErrCouponRuleInvalid)
	}

	switch input.Type {
	case constants.CouponTypePercentage:
		if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentage value must be in (0,100]", ErrCouponRuleInvalid)
		}
	case constants.CouponTypeFixed:
		if value.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: fixed value must be positive", ErrCouponRuleInvalid)
		}
	case constants.CouponTypeFreeTrial:
		// free_trial 不使用 value
	default:
		return fmt.Errorf("%w: unknown coupon type %s", ErrCouponRuleInvalid, input.Type)
	}

	for _, plan := range input.TargetPlans {
		if plan == constants.CouponTargetAll {
			continue
		}
		if _, err := s.catalog.Price(plan); err != nil {
			return fmt.Errorf("%w: unknown target plan %s", ErrCouponRuleInvalid, plan)
		}
	}

	validFrom, err := parseTimePtr(input.ValidFrom)
	if err != nil {
		return fmt.Errorf("%w: valid_from must be RFC3339", ErrCouponRuleInvalid)
	}
	validUntil, err := parseTimePtr(input.ValidUntil)
	if err != nil {
		return fmt.Errorf("%w: valid_until must be RFC3339", ErrCouponRuleInvalid)
	}
	if validFrom != nil && validUntil != nil && validFrom.After(*validUntil) {
		return fmt.Errorf("%w: valid_from must not be after valid_until", ErrCouponRuleInvalid)
	}
	if input.MaxUses < 0 || input.MaxUsesPerUser < 0 {
		return fmt.Errorf("%w: usage limits must not be negative", ErrCouponRuleInvalid)
	}

	coupon.Code = code
	coupon.Type = input.Type
	coupon.Value = models.NewMoneyFromDecimal(value)
	coupon.TargetPlans = models.StringArray(input.TargetPlans)
	coupon.ValidFrom = validFrom
	coupon.ValidUntil = validUntil
	coupon.MaxUses = input.MaxUses
	coupon.MaxUsesPerUser = input.MaxUsesPerUser
	if input.MinAmount != "" {
		m, err := models.NewMoneyFromString(input.MinAmount)
		if err != nil {
			return fmt.Errorf("%w: min_amount must be decimal", ErrCouponRuleInvalid)
		}
		coupon.MinAmount = m
	}
	if input.MaxDiscount != "" {
		m, err := models.NewMoneyFromString(input.MaxDiscount)
		if err != nil {
			return fmt.Errorf("%w: max_discount must be decimal", ErrCouponRuleInvalid)
		}
		coupon.MaxDiscount = m
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	return nil
}

func parseTimePtr(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
