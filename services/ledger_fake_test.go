package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wavemandarin/mandarin_school/models"
)

// memLedger keeps rows in maps and only publishes a transaction's writes when fn succeeds.
type memLedger struct {
	mu       sync.Mutex
	orders   map[string]models.StudentOrder
	balances map[uuid.UUID]models.StudentClassBalance
	failSave bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		orders:   map[string]models.StudentOrder{},
		balances: map[uuid.UUID]models.StudentClassBalance{},
	}
}

func (m *memLedger) addOrder(o models.StudentOrder) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orders[o.OrderNumber] = o
}

func (m *memLedger) addBalance(b models.StudentClassBalance) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Recalculate()
	m.balances[b.StudentID] = b
}

func (m *memLedger) order(number string) models.StudentOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[number]
}

func (m *memLedger) balance(studentID uuid.UUID) (models.StudentClassBalance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[studentID]
	return b, ok
}

func (m *memLedger) Transaction(_ context.Context, fn func(tx LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memLedgerTx{
		parent:   m,
		orders:   make(map[string]models.StudentOrder, len(m.orders)),
		balances: make(map[uuid.UUID]models.StudentClassBalance, len(m.balances)),
	}
	for k, v := range m.orders {
		tx.orders[k] = v
	}
	for k, v := range m.balances {
		tx.balances[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.orders = tx.orders
	m.balances = tx.balances
	return nil
}

type memLedgerTx struct {
	parent   *memLedger
	orders   map[string]models.StudentOrder
	balances map[uuid.UUID]models.StudentClassBalance
}

func (t *memLedgerTx) LockOrderByNumber(orderNumber string) (*models.StudentOrder, error) {
	o, ok := t.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (t *memLedgerTx) LockOrderByID(id uuid.UUID) (*models.StudentOrder, error) {
	for _, o := range t.orders {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (t *memLedgerTx) SaveOrder(order *models.StudentOrder) error {
	t.orders[order.OrderNumber] = *order
	return nil
}

func (t *memLedgerTx) LockBalance(studentID uuid.UUID) (*models.StudentClassBalance, error) {
	b, ok := t.balances[studentID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (t *memLedgerTx) SaveBalance(balance *models.StudentClassBalance) error {
	if t.parent.failSave {
		return errSaveFailed
	}
	if balance.ID == uuid.Nil {
		balance.ID = uuid.New()
	}
	balance.Recalculate()
	t.balances[balance.StudentID] = *balance
	return nil
}
