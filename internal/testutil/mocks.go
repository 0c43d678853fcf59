package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockTransactionSource is an in-memory implementation of domain.TransactionSource
type MockTransactionSource struct {
	mu           sync.Mutex
	Transactions []*domain.TransactionRecord
	Queries      []domain.TransactionQuery
	ListErr      error
	// ErrForMonth fails queries that start inside the given month
	ErrForMonth map[domain.MonthKey]error
	// RecurringErr fails only recurring-only queries
	RecurringErr error
}

// NewMockTransactionSource creates a new MockTransactionSource
func NewMockTransactionSource() *MockTransactionSource {
	return &MockTransactionSource{
		ErrForMonth: make(map[domain.MonthKey]error),
	}
}

// AddTransaction adds a transaction to the mock ledger
func (m *MockTransactionSource) AddTransaction(tx *domain.TransactionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions = append(m.Transactions, tx)
}

// AddDebit adds a visible debit for a category
func (m *MockTransactionSource) AddDebit(userID uuid.UUID, categoryID int32, date time.Time, amount int64, recurring bool) {
	m.AddTransaction(&domain.TransactionRecord{
		ID:         m.nextID(),
		UserID:     userID,
		Date:       date,
		Amount:     decimal.NewFromInt(amount),
		Direction:  domain.DirectionDebit,
		CategoryID: &categoryID,
		Recurring:  recurring,
	})
}

// AddCredit adds a visible credit for a category
func (m *MockTransactionSource) AddCredit(userID uuid.UUID, categoryID int32, date time.Time, amount int64) {
	m.AddTransaction(&domain.TransactionRecord{
		ID:         m.nextID(),
		UserID:     userID,
		Date:       date,
		Amount:     decimal.NewFromInt(amount),
		Direction:  domain.DirectionCredit,
		CategoryID: &categoryID,
	})
}

func (m *MockTransactionSource) nextID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Transactions) + 1)
}

// ListTransactions implements domain.TransactionSource
func (m *MockTransactionSource) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if err, ok := m.ErrForMonth[domain.MonthOf(q.Start)]; ok {
		return nil, err
	}
	if q.RecurringOnly && m.RecurringErr != nil {
		return nil, m.RecurringErr
	}

	result := make([]*domain.TransactionRecord, 0)
	for _, tx := range m.Transactions {
		if tx.UserID != q.UserID || !tx.Counts() {
			continue
		}
		if tx.Date.Before(q.Start) || !tx.Date.Before(q.End) {
			continue
		}
		if q.RecurringOnly && !tx.Recurring {
			continue
		}
		if q.Direction != nil && tx.Direction != *q.Direction {
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

// QueryCount returns the number of ListTransactions calls
func (m *MockTransactionSource) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockBudgetSource is an in-memory implementation of domain.BudgetSource
type MockBudgetSource struct {
	mu          sync.Mutex
	Budgets     map[uuid.UUID]map[domain.MonthKey][]*domain.BudgetRecord
	Requested   []domain.MonthKey
	ListErr     error
	ErrForMonth map[domain.MonthKey]error
}

// NewMockBudgetSource creates a new MockBudgetSource
func NewMockBudgetSource() *MockBudgetSource {
	return &MockBudgetSource{
		Budgets:     make(map[uuid.UUID]map[domain.MonthKey][]*domain.BudgetRecord),
		ErrForMonth: make(map[domain.MonthKey]error),
	}
}

// AddBudget adds a budget for the record's user and month
func (m *MockBudgetSource) AddBudget(b *domain.BudgetRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Budgets[b.UserID] == nil {
		m.Budgets[b.UserID] = make(map[domain.MonthKey][]*domain.BudgetRecord)
	}
	m.Budgets[b.UserID][b.Month] = append(m.Budgets[b.UserID][b.Month], b)
}

// SetBudget is a shorthand for a rollover-enabled or disabled budget
func (m *MockBudgetSource) SetBudget(userID uuid.UUID, month domain.MonthKey, categoryID int32, amount int64, rolloverEnabled bool) {
	m.AddBudget(&domain.BudgetRecord{
		UserID:          userID,
		CategoryID:      categoryID,
		Month:           month,
		Amount:          decimal.NewFromInt(amount),
		RolloverEnabled: rolloverEnabled,
	})
}

// ListBudgets implements domain.BudgetSource
func (m *MockBudgetSource) ListBudgets(ctx context.Context, userID uuid.UUID, month domain.MonthKey) ([]*domain.BudgetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requested = append(m.Requested, month)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if err, ok := m.ErrForMonth[month]; ok {
		return nil, err
	}

	budgets := m.Budgets[userID][month]
	result := make([]*domain.BudgetRecord, len(budgets))
	copy(result, budgets)
	return result, nil
}

// RequestedMonths returns every month whose budgets were read, in call order
func (m *MockBudgetSource) RequestedMonths() []domain.MonthKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MonthKey, len(m.Requested))
	copy(out, m.Requested)
	return out
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User)}
}

// AddUser registers a user under its Auth0 ID
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
}

// GetByAuth0ID implements domain.UserRepository
func (m *MockUserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// MockRolloverMemo is a map-backed domain.RolloverMemo that counts hits
type MockRolloverMemo struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]map[domain.MonthKey]domain.RolloverMap
	generations map[uuid.UUID]uint64
	Hits        int
	Sets        int
	// Dropped counts writes rejected for carrying a superseded generation
	Dropped int
}

// NewMockRolloverMemo creates a new MockRolloverMemo
func NewMockRolloverMemo() *MockRolloverMemo {
	return &MockRolloverMemo{
		entries:     make(map[uuid.UUID]map[domain.MonthKey]domain.RolloverMap),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Generation implements domain.RolloverMemo
func (m *MockRolloverMemo) Generation(userID uuid.UUID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[userID]
}

// Get implements domain.RolloverMemo
func (m *MockRolloverMemo) Get(userID uuid.UUID, month domain.MonthKey) (domain.RolloverMap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[userID][month]
	if ok {
		m.Hits++
	}
	return r, ok
}

// Set implements domain.RolloverMemo
func (m *MockRolloverMemo) Set(userID uuid.UUID, month domain.MonthKey, generation uint64, rollover domain.RolloverMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generations[userID] {
		m.Dropped++
		return
	}
	if m.entries[userID] == nil {
		m.entries[userID] = make(map[domain.MonthKey]domain.RolloverMap)
	}
	m.entries[userID][month] = rollover
	m.Sets++
}

// Invalidate implements domain.RolloverMemo
func (m *MockRolloverMemo) Invalidate(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	m.generations[userID]++
}
