package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavemandarin/mandarin_school/models"
)

var errSaveFailed = errors.New("save failed")

func newTestReconciler(ledger Ledger) *Reconciler {
	r := NewReconciler(ledger, nil)
	r.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return r
}

func pendingOrder(number string, studentID uuid.UUID, classes int) models.StudentOrder {
	return models.StudentOrder{
		OrderNumber:      number,
		StudentID:        studentID,
		PackageName:      "20课时",
		ClassesPurchased: classes,
		Amount:           decimal.NewFromInt(5600),
		Currency:         "CNY",
		Status:           models.OrderPending,
	}
}

func TestCreditOrderAddsToExistingBalance(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(pendingOrder("ORD-1-AAAAAAA", student, 20))
	ledger.addBalance(models.StudentClassBalance{StudentID: student, TotalClasses: 10, UsedClasses: 3})

	res, err := newTestReconciler(ledger).CreditOrder(context.Background(), "ORD-1-AAAAAAA", "paypal")
	require.NoError(t, err)
	assert.True(t, res.Credited)

	bal, ok := ledger.balance(student)
	require.True(t, ok)
	assert.Equal(t, 30, bal.TotalClasses)
	assert.Equal(t, 3, bal.UsedClasses)
	assert.Equal(t, 27, bal.RemainingClasses)

	order := ledger.order("ORD-1-AAAAAAA")
	assert.Equal(t, models.OrderPaid, order.Status)
	assert.NotNil(t, order.PaidAt)
	assert.NotNil(t, order.CreditedAt)
}

func TestCreditOrderCreatesMissingBalance(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(pendingOrder("ORD-2-BBBBBBB", student, 20))

	_, err := newTestReconciler(ledger).CreditOrder(context.Background(), "ORD-2-BBBBBBB", "stripe")
	require.NoError(t, err)

	bal, ok := ledger.balance(student)
	require.True(t, ok)
	assert.Equal(t, 20, bal.TotalClasses)
	assert.Equal(t, 0, bal.UsedClasses)
	assert.Equal(t, 20, bal.RemainingClasses)
}

func TestCreditOrderIsIdempotent(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(pendingOrder("ORD-3-CCCCCCC", student, 10))
	r := newTestReconciler(ledger)

	_, err := r.CreditOrder(context.Background(), "ORD-3-CCCCCCC", "paypal")
	require.NoError(t, err)
	again, err := r.CreditOrder(context.Background(), "ORD-3-CCCCCCC", "webhook")
	require.NoError(t, err)
	assert.False(t, again.Credited)

	order := ledger.order("ORD-3-CCCCCCC")
	_, err = r.ApplyAdminUpdate(context.Background(), order.ID, AdminOrderUpdate{Status: models.OrderPaid})
	require.NoError(t, err)

	bal, _ := ledger.balance(student)
	assert.Equal(t, 10, bal.TotalClasses)
	assert.Equal(t, 10, bal.RemainingClasses)
}

func TestCreditOrderRejectsIllegalTransitions(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	cancelled := pendingOrder("ORD-4-DDDDDDD", student, 10)
	cancelled.Status = models.OrderCancelled
	ledger.addOrder(cancelled)

	_, err := newTestReconciler(ledger).CreditOrder(context.Background(), "ORD-4-DDDDDDD", "paypal")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, ok := ledger.balance(student)
	assert.False(t, ok)

	_, err = newTestReconciler(ledger).CreditOrder(context.Background(), "ORD-missing", "paypal")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreditOrderRollsBackOnBalanceFailure(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(pendingOrder("ORD-5-EEEEEEE", student, 10))
	ledger.failSave = true

	_, err := newTestReconciler(ledger).CreditOrder(context.Background(), "ORD-5-EEEEEEE", "paypal")
	assert.ErrorIs(t, err, errSaveFailed)

	order := ledger.order("ORD-5-EEEEEEE")
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Nil(t, order.CreditedAt)
}

func TestRecreditLegacyPaidOrder(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	legacy := pendingOrder("ORD-6-FFFFFFF", student, 35)
	legacy.Status = models.OrderPaid
	ledger.addOrder(legacy)
	ledger.addBalance(models.StudentClassBalance{StudentID: student, TotalClasses: 5, UsedClasses: 5})
	r := newTestReconciler(ledger)

	id := ledger.order("ORD-6-FFFFFFF").ID
	res, err := r.Recredit(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, 35, res.Balance.RemainingClasses)

	res, err = r.Recredit(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, res.Credited)
}

func TestApplyAdminUpdate(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	other := uuid.New()
	ledger.addOrder(pendingOrder("ORD-7-GGGGGGG", student, 10))
	r := newTestReconciler(ledger)
	id := ledger.order("ORD-7-GGGGGGG").ID

	_, err := r.ApplyAdminUpdate(context.Background(), id, AdminOrderUpdate{Status: models.OrderPendingConfirmation, StudentID: &other})
	require.NoError(t, err)
	assert.Equal(t, other, ledger.order("ORD-7-GGGGGGG").StudentID)

	res, err := r.ApplyAdminUpdate(context.Background(), id, AdminOrderUpdate{Status: models.OrderPaid})
	require.NoError(t, err)
	assert.True(t, res.Credited)
	bal, ok := ledger.balance(other)
	require.True(t, ok)
	assert.Equal(t, 10, bal.TotalClasses)

	_, err = r.ApplyAdminUpdate(context.Background(), id, AdminOrderUpdate{Status: models.OrderPending})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = r.ApplyAdminUpdate(context.Background(), id, AdminOrderUpdate{Status: models.OrderPaid, StudentID: &student})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestMarkPendingConfirmationNeverPays(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(pendingOrder("ORD-8-HHHHHHH", student, 10))
	r := newTestReconciler(ledger)

	order, err := r.MarkPendingConfirmation(context.Background(), "ORD-8-HHHHHHH")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingConfirmation, order.Status)
	_, ok := ledger.balance(student)
	assert.False(t, ok)

	_, err = r.MarkPendingConfirmation(context.Background(), "ORD-8-HHHHHHH")
	require.NoError(t, err)
}
