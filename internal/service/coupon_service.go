package service

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// DiscountCalculation 折扣计算结果（临时值，不落库）
type DiscountCalculation struct {
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Coupon         *models.Coupon
}

// CouponService 优惠券校验服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	now        func() time.Time
}

// NewCouponService 创建优惠券校验服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		now:        time.Now,
	}
}

// Validate 校验优惠码并计算折扣
//
// 规则按固定优先级求值，命中第一条失败即返回，后续规则不再评估；
// 纯读操作，核销只在回调对账时记账。
func (s *CouponService) Validate(code, plan string, amount decimal.Decimal, tenantID, userID uint) (*DiscountCalculation, error) {
	// 规则1：优惠码存在且启用
	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponInvalid
		}
		return nil, err
	}
	if !coupon.IsActive {
		return nil, ErrCouponInvalid
	}

	// 规则2：有效期窗口
	now := s.now()
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return nil, ErrCouponExpired
	}

	// 规则3：计划适用范围
	if !planTargeted(coupon.TargetPlans, plan) {
		return nil, ErrCouponPlanMismatch
	}

	// 规则4：最低消费门槛
	if coupon.MinAmount.Decimal.IsPositive() && amount.LessThan(coupon.MinAmount.Decimal) {
		return nil, ErrCouponBelowMin
	}

	// 规则5：总使用上限
	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return nil, ErrCouponMaxUses
	}

	// 规则6：每人使用上限
	if coupon.MaxUsesPerUser > 0 {
		used, err := s.usageRepo.CountByCouponUser(coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(coupon.MaxUsesPerUser) {
			return nil, ErrCouponAlreadyUsed
		}
	}

	// 规则7：折扣计算
	discount := computeDiscount(coupon, amount)
	final := amount.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return &DiscountCalculation{
		OriginalAmount: amount,
		DiscountAmount: discount,
		FinalAmount:    final,
		Coupon:         coupon,
	}, nil
}

// planTargeted 空集合与含 all 的集合对所有计划生效
func planTargeted(targets models.StringArray, plan string) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if t == constants.CouponTargetAll || t == plan {
			return true
		}
	}
	return false
}

// computeDiscount 按类型计算折扣，结果始终落在 [0, amount] 内
func computeDiscount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypePercentage:
		discount = amount.Mul(coupon.Value.Decimal).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount.Decimal.IsPositive() && discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.CouponTypeFixed:
		discount = coupon.Value.Decimal
		if discount.GreaterThan(amount) {
			discount = amount
		}
	case constants.CouponTypeFreeTrial:
		discount = amount
	default:
		discount = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}
