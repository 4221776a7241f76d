package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerTx is the row-level access reconciliation needs inside one transaction.
type LedgerTx interface {
	LockOrderByNumber(orderNumber string) (*models.StudentOrder, error)
	LockOrderByID(id uuid.UUID) (*models.StudentOrder, error)
	SaveOrder(order *models.StudentOrder) error
	// LockBalance returns nil without error when the student has no balance row yet.
	LockBalance(studentID uuid.UUID) (*models.StudentClassBalance, error)
	SaveBalance(balance *models.StudentClassBalance) error
}

type Ledger interface {
	Transaction(ctx context.Context, fn func(tx LedgerTx) error) error
}

type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Transaction(ctx context.Context, fn func(tx LedgerTx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerTx{tx: tx})
	})
}

type gormLedgerTx struct {
	tx *gorm.DB
}

func (g *gormLedgerTx) lockOrder(query string, arg interface{}) (*models.StudentOrder, error) {
	var order models.StudentOrder
	err := g.tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &order, nil
}

func (g *gormLedgerTx) LockOrderByNumber(orderNumber string) (*models.StudentOrder, error) {
	return g.lockOrder("order_number = ?", orderNumber)
}

func (g *gormLedgerTx) LockOrderByID(id uuid.UUID) (*models.StudentOrder, error) {
	return g.lockOrder("id = ?", id)
}

func (g *gormLedgerTx) SaveOrder(order *models.StudentOrder) error {
	return database.Classify(g.tx.Save(order).Error)
}

func (g *gormLedgerTx) LockBalance(studentID uuid.UUID) (*models.StudentClassBalance, error) {
	var balance models.StudentClassBalance
	err := g.tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("student_id = ?", studentID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &balance, nil
}

func (g *gormLedgerTx) SaveBalance(balance *models.StudentClassBalance) error {
	if balance.ID == uuid.Nil {
		return database.Classify(g.tx.Create(balance).Error)
	}
	return database.Classify(g.tx.Save(balance).Error)
}
