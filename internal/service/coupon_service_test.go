package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:paycore_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PaymentIntent{},
		&models.Payment{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Subscription{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newCouponService(t *testing.T, db *gorm.DB) *CouponService {
	t.Helper()
	return NewCouponService(
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
	)
}

func mustMoney(t *testing.T, raw string) models.Money {
	t.Helper()
	m, err := models.NewMoneyFromString(raw)
	if err != nil {
		t.Fatalf("parse money %q: %v", raw, err)
	}
	return m
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon *models.Coupon) *models.Coupon {
	t.Helper()
	if err := repository.NewCouponRepository(db).Create(coupon); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func TestValidatePercentageDiscount(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:        "TEN",
		Type:        constants.CouponTypePercentage,
		Value:       mustMoney(t, "10"),
		TargetPlans: models.StringArray{constants.CouponTargetAll},
		IsActive:    true,
	})

	calc, err := svc.Validate("ten", "growth", decimal.RequireFromString("3000.00"), 7, 42)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if calc.DiscountAmount.StringFixed(2) != "300.00" {
		t.Fatalf("discount = %s, want 300.00", calc.DiscountAmount.StringFixed(2))
	}
	if calc.FinalAmount.StringFixed(2) != "2700.00" {
		t.Fatalf("final = %s, want 2700.00", calc.FinalAmount.StringFixed(2))
	}
}

func TestValidatePercentageCappedByMaxDiscount(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:        "TENCAP",
		Type:        constants.CouponTypePercentage,
		Value:       mustMoney(t, "10"),
		MaxDiscount: mustMoney(t, "200"),
		TargetPlans: models.StringArray{constants.CouponTargetAll},
		IsActive:    true,
	})

	calc, err := svc.Validate("TENCAP", "growth", decimal.RequireFromString("3000.00"), 7, 42)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if calc.DiscountAmount.StringFixed(2) != "200.00" {
		t.Fatalf("discount = %s, want 200.00", calc.DiscountAmount.StringFixed(2))
	}
	if calc.FinalAmount.StringFixed(2) != "2800.00" {
		t.Fatalf("final = %s, want 2800.00", calc.FinalAmount.StringFixed(2))
	}
}

func TestValidateFixedClampedToAmount(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:     "BIGFIX",
		Type:     constants.CouponTypeFixed,
		Value:    mustMoney(t, "5000"),
		IsActive: true,
	})

	calc, err := svc.Validate("BIGFIX", "starter", decimal.RequireFromString("1500.00"), 7, 42)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if calc.DiscountAmount.StringFixed(2) != "1500.00" {
		t.Fatalf("discount = %s, want full amount", calc.DiscountAmount.StringFixed(2))
	}
	if !calc.FinalAmount.IsZero() {
		t.Fatalf("final = %s, want 0", calc.FinalAmount.StringFixed(2))
	}
}

func TestValidateFreeTrialZeroesAmount(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:     "TRIAL",
		Type:     constants.CouponTypeFreeTrial,
		Value:    mustMoney(t, "0"),
		IsActive: true,
	})

	calc, err := svc.Validate("TRIAL", "starter", decimal.RequireFromString("1500.00"), 7, 42)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !calc.FinalAmount.IsZero() {
		t.Fatalf("final = %s, want 0", calc.FinalAmount.StringFixed(2))
	}
}

func TestValidateUnknownAndInactiveCode(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:     "OFF",
		Type:     constants.CouponTypePercentage,
		Value:    mustMoney(t, "10"),
		IsActive: false,
	})

	if _, err := svc.Validate("NOPE", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponInvalid {
		t.Fatalf("unknown code err = %v, want ErrCouponInvalid", err)
	}
	if _, err := svc.Validate("OFF", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponInvalid {
		t.Fatalf("inactive code err = %v, want ErrCouponInvalid", err)
	}
}

// 过期且计划不匹配的券必须报告过期：有效期检查先于计划检查
func TestValidateExpiredBeforePlanMismatch(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	past := time.Now().Add(-48 * time.Hour)
	seedCoupon(t, db, &models.Coupon{
		Code:        "OLD",
		Type:        constants.CouponTypePercentage,
		Value:       mustMoney(t, "10"),
		TargetPlans: models.StringArray{"enterprise"},
		ValidUntil:  &past,
		IsActive:    true,
	})

	_, err := svc.Validate("OLD", "starter", decimal.RequireFromString("1500.00"), 7, 42)
	if err != ErrCouponExpired {
		t.Fatalf("err = %v, want ErrCouponExpired", err)
	}
}

func TestValidateNotYetValid(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	future := time.Now().Add(48 * time.Hour)
	seedCoupon(t, db, &models.Coupon{
		Code:      "SOON",
		Type:      constants.CouponTypePercentage,
		Value:     mustMoney(t, "10"),
		ValidFrom: &future,
		IsActive:  true,
	})

	if _, err := svc.Validate("SOON", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponExpired {
		t.Fatalf("err = %v, want ErrCouponExpired", err)
	}
}

func TestValidatePlanMismatch(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:        "ENT",
		Type:        constants.CouponTypePercentage,
		Value:       mustMoney(t, "10"),
		TargetPlans: models.StringArray{"enterprise"},
		IsActive:    true,
	})

	if _, err := svc.Validate("ENT", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponPlanMismatch {
		t.Fatalf("err = %v, want ErrCouponPlanMismatch", err)
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	seedCoupon(t, db, &models.Coupon{
		Code:      "MIN2K",
		Type:      constants.CouponTypePercentage,
		Value:     mustMoney(t, "10"),
		MinAmount: mustMoney(t, "2000"),
		IsActive:  true,
	})

	if _, err := svc.Validate("MIN2K", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponBelowMin {
		t.Fatalf("err = %v, want ErrCouponBelowMin", err)
	}
}

func TestValidateMaxUsesReached(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	coupon := seedCoupon(t, db, &models.Coupon{
		Code:     "ONEUSE",
		Type:     constants.CouponTypePercentage,
		Value:    mustMoney(t, "10"),
		MaxUses:  1,
		IsActive: true,
	})
	// 模拟配额已被首个订单消耗
	if ok, err := repository.NewCouponRepository(db).IncrementUsage(coupon.ID); err != nil || !ok {
		t.Fatalf("consume quota: ok=%v err=%v", ok, err)
	}

	_, err := svc.Validate("ONEUSE", "starter", decimal.RequireFromString("1500.00"), 8, 43)
	if err != ErrCouponMaxUses {
		t.Fatalf("err = %v, want ErrCouponMaxUses", err)
	}
}

func TestValidatePerUserLimit(t *testing.T) {
	db := newTestDB(t)
	svc := newCouponService(t, db)
	coupon := seedCoupon(t, db, &models.Coupon{
		Code:           "ONCEEACH",
		Type:           constants.CouponTypePercentage,
		Value:          mustMoney(t, "10"),
		MaxUsesPerUser: 1,
		IsActive:       true,
	})
	if err := repository.NewCouponUsageRepository(db).Create(&models.CouponUsage{
		CouponID: coupon.ID,
		TenantID: 7,
		UserID:   42,
		OrderID:  "HB7-900",
		UsedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	if _, err := svc.Validate("ONCEEACH", "starter", decimal.RequireFromString("1500.00"), 7, 42); err != ErrCouponAlreadyUsed {
		t.Fatalf("same user err = %v, want ErrCouponAlreadyUsed", err)
	}
	if _, err := svc.Validate("ONCEEACH", "starter", decimal.RequireFromString("1500.00"), 7, 43); err != nil {
		t.Fatalf("other user err = %v, want nil", err)
	}
}
