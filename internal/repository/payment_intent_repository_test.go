package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:paycore_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

func newPendingIntent(orderID string) *models.PaymentIntent {
	amount, _ := models.NewMoneyFromString("1500.00")
	return &models.PaymentIntent{
		OrderID:        orderID,
		TenantID:       7,
		UserID:         42,
		Plan:           "starter",
		Gateway:        constants.GatewayPayU,
		Amount:         amount,
		OriginalAmount: amount,
		Currency:       "KES",
		Status:         constants.IntentStatusPending,
	}
}

func TestPaymentIntentMarkCompletedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentIntentRepository(db)

	if err := repo.Create(newPendingIntent("HB7-001")); err != nil {
		t.Fatalf("create intent: %v", err)
	}

	now := time.Now()
	won, err := repo.MarkCompleted("HB7-001", now)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if !won {
		t.Fatal("first mark should win the transition")
	}

	// 重复回调：条件更新不应再命中任何行
	won, err = repo.MarkCompleted("HB7-001", now.Add(time.Second))
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if won {
		t.Fatal("second mark must lose, intent is no longer pending")
	}

	intent, err := repo.GetByOrderID("HB7-001")
	if err != nil {
		t.Fatalf("get intent: %v", err)
	}
	if intent.Status != constants.IntentStatusCompleted {
		t.Fatalf("status = %s, want completed", intent.Status)
	}
	if intent.CompletedAt == nil {
		t.Fatal("completed_at should be set")
	}
}

func TestPaymentIntentMarkFailedOnlyFromPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentIntentRepository(db)

	if err := repo.Create(newPendingIntent("HB7-002")); err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if _, err := repo.MarkCompleted("HB7-002", time.Now()); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	changed, err := repo.MarkFailed("HB7-002")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if changed {
		t.Fatal("completed intent must not transition to failed")
	}
}

func TestPaymentIntentOrderIDUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentIntentRepository(db)

	if err := repo.Create(newPendingIntent("HB7-003")); err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if err := repo.Create(newPendingIntent("HB7-003")); err == nil {
		t.Fatal("duplicate order_id should be rejected by unique index")
	}
}

func TestPaymentIntentList(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentIntentRepository(db)

	for i := 0; i < 3; i++ {
		intent := newPendingIntent(fmt.Sprintf("HB7-10%d", i))
		if i == 2 {
			intent.TenantID = 99
		}
		if err := repo.Create(intent); err != nil {
			t.Fatalf("create intent %d: %v", i, err)
		}
	}

	intents, total, err := repo.List(0, 10, 7, constants.IntentStatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(intents) != 2 {
		t.Fatalf("total=%d len=%d, want 2/2", total, len(intents))
	}
}
