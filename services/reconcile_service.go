package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/models"
)

type CreditResult struct {
	Order   *models.StudentOrder
	Balance *models.StudentClassBalance
	// Credited is false when the order had already been credited earlier.
	Credited bool
}

// AdminOrderUpdate carries the fields staff may change on an order.
type AdminOrderUpdate struct {
	Status    models.OrderStatus
	StudentID *uuid.UUID
}

// Reconciler moves orders to paid and credits class balances atomically.
type Reconciler struct {
	ledger     Ledger
	now        func() time.Time
	onCredited func(CreditResult)
}

func NewReconciler(ledger Ledger, onCredited func(CreditResult)) *Reconciler {
	return &Reconciler{ledger: ledger, now: time.Now, onCredited: onCredited}
}

// CreditOrder marks the order paid and adds its classes to the student's balance.
// Calling it again for a credited order is a no-op.
func (r *Reconciler) CreditOrder(ctx context.Context, orderNumber, source string) (*CreditResult, error) {
	var result *CreditResult
	err := r.ledger.Transaction(ctx, func(tx LedgerTx) error {
		order, err := tx.LockOrderByNumber(orderNumber)
		if err != nil {
			return err
		}
		result, err = r.credit(tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.afterCommit(result, source)
	return result, nil
}

// Recredit credits a paid order whose balance update never happened.
func (r *Reconciler) Recredit(ctx context.Context, orderID uuid.UUID) (*CreditResult, error) {
	var result *CreditResult
	err := r.ledger.Transaction(ctx, func(tx LedgerTx) error {
		order, err := tx.LockOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPaid {
			return ErrIllegalTransition
		}
		result, err = r.credit(tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.afterCommit(result, "admin")
	return result, nil
}

// ApplyAdminUpdate changes status and/or owner. A move to paid runs the credit path.
func (r *Reconciler) ApplyAdminUpdate(ctx context.Context, orderID uuid.UUID, update AdminOrderUpdate) (*CreditResult, error) {
	var result *CreditResult
	err := r.ledger.Transaction(ctx, func(tx LedgerTx) error {
		order, err := tx.LockOrderByID(orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(update.Status) {
			return ErrIllegalTransition
		}
		if update.StudentID != nil && *update.StudentID != order.StudentID {
			if order.IsCredited() {
				// classes already landed on the previous owner's balance
				return ErrIllegalTransition
			}
			order.StudentID = *update.StudentID
		}

		if update.Status == models.OrderPaid {
			result, err = r.credit(tx, order)
			return err
		}
		order.Status = update.Status
		result = &CreditResult{Order: order}
		return tx.SaveOrder(order)
	})
	if err != nil {
		return nil, err
	}
	r.afterCommit(result, "admin")
	return result, nil
}

// MarkPendingConfirmation records that the student reports a manual payment.
func (r *Reconciler) MarkPendingConfirmation(ctx context.Context, orderNumber string) (*models.StudentOrder, error) {
	var order *models.StudentOrder
	err := r.ledger.Transaction(ctx, func(tx LedgerTx) error {
		var err error
		order, err = tx.LockOrderByNumber(orderNumber)
		if err != nil {
			return err
		}
		if order.Status == models.OrderPendingConfirmation {
			return nil
		}
		if order.Status != models.OrderPending {
			return ErrIllegalTransition
		}
		order.Status = models.OrderPendingConfirmation
		return tx.SaveOrder(order)
	})
	return order, err
}

func (r *Reconciler) credit(tx LedgerTx, order *models.StudentOrder) (*CreditResult, error) {
	if order.IsCredited() {
		return &CreditResult{Order: order}, nil
	}
	if order.Status != models.OrderPaid && !order.Status.CanTransitionTo(models.OrderPaid) {
		return nil, ErrIllegalTransition
	}

	now := r.now()
	order.Status = models.OrderPaid
	if order.PaidAt == nil {
		order.PaidAt = &now
	}
	order.CreditedAt = &now
	if err := tx.SaveOrder(order); err != nil {
		return nil, err
	}

	balance, err := tx.LockBalance(order.StudentID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &models.StudentClassBalance{StudentID: order.StudentID}
	}
	balance.Credit(order.ClassesPurchased)
	if err := tx.SaveBalance(balance); err != nil {
		return nil, err
	}

	return &CreditResult{Order: order, Balance: balance, Credited: true}, nil
}

func (r *Reconciler) afterCommit(result *CreditResult, source string) {
	if result == nil || !result.Credited {
		return
	}
	logrus.WithFields(logrus.Fields{
		"order_number": result.Order.OrderNumber,
		"student_id":   result.Order.StudentID,
		"classes":      result.Order.ClassesPurchased,
		"remaining":    result.Balance.RemainingClasses,
		"source":       source,
	}).Info("Order credited")
	if r.onCredited != nil {
		go r.onCredited(*result)
	}
}
