package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/chain"
	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/events"
	"github.com/u2kpay/backend/internal/models"
)

// fakeLedger simulates the contract pair in memory. Errors can be injected
// per method to exercise failure paths.
type fakeLedger struct {
	mu        sync.Mutex
	nextID    int64
	bills     map[int64]*chain.Bill
	balances  map[string]*big.Int
	allowance map[string]*big.Int

	createErr   error
	payErr      error
	approveErr  error
	rejectErr   error
	balanceErrs map[string]error

	approveCalls int
	payCalls     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextID:      1,
		bills:       map[int64]*chain.Bill{},
		balances:    map[string]*big.Int{},
		allowance:   map[string]*big.Int{},
		balanceErrs: map[string]error{},
	}
}

func (l *fakeLedger) Decimals() int { return 18 }

func (l *fakeLedger) CreateBill(_ context.Context, _ chain.Authorization, sponsor, destination string, amount *big.Int, description string) (string, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return "", 0, l.createErr
	}
	id := l.nextID
	l.nextID++
	l.bills[id] = &chain.Bill{
		ID:                 id,
		Sponsor:            sponsor,
		PaymentDestination: destination,
		Amount:             chain.FromTokenUnits(amount, 18),
		AmountUnits:        new(big.Int).Set(amount),
		Description:        description,
		Status:             "pending",
	}
	return fmt.Sprintf("0xcreate%d", id), id, nil
}

func (l *fakeLedger) PayBillWithNative(_ context.Context, _ chain.Authorization, billID int64, _ *big.Int) (string, error) {
	return l.settle(billID, "paid", l.payErr)
}

func (l *fakeLedger) PayBillWithToken(_ context.Context, _ chain.Authorization, billID int64) (string, error) {
	l.mu.Lock()
	l.payCalls++
	l.mu.Unlock()
	return l.settle(billID, "paid", l.payErr)
}

func (l *fakeLedger) RejectBill(_ context.Context, _ chain.Authorization, billID int64) (string, error) {
	return l.settle(billID, "rejected", l.rejectErr)
}

func (l *fakeLedger) settle(billID int64, status string, injected error) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if injected != nil {
		return "", injected
	}
	b, ok := l.bills[billID]
	if !ok {
		return "", errs.Revertedf("bill %d does not exist", billID)
	}
	if b.Status != "pending" {
		return "", errs.Revertedf("bill %d is %s", billID, b.Status)
	}
	b.Status = status
	return fmt.Sprintf("0x%s%d", status, billID), nil
}

func (l *fakeLedger) Approve(_ context.Context, auth chain.Authorization, amount *big.Int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.approveCalls++
	if l.approveErr != nil {
		return "", l.approveErr
	}
	l.allowance[auth.Address().Hex()] = new(big.Int).Set(amount)
	return "0xapprove", nil
}

func (l *fakeLedger) Allowance(_ context.Context, owner string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.allowance[owner]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (l *fakeLedger) GetBill(_ context.Context, billID int64) (*chain.Bill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bills[billID]
	if !ok {
		return nil, errs.NotFoundf("bill %d not found on chain", billID)
	}
	cp := *b
	cp.AmountUnits = new(big.Int).Set(b.AmountUnits)
	return &cp, nil
}

func (l *fakeLedger) BeneficiaryBills(_ context.Context, addr string) ([]int64, error) {
	return l.billsWhere(func(b *chain.Bill) bool { return b.Beneficiary == addr })
}

func (l *fakeLedger) SponsorBills(_ context.Context, addr string) ([]int64, error) {
	return l.billsWhere(func(b *chain.Bill) bool { return b.Sponsor == addr })
}

func (l *fakeLedger) billsWhere(match func(*chain.Bill) bool) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []int64
	for id, b := range l.bills {
		if match(b) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (l *fakeLedger) TokenBalance(_ context.Context, addr string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.balanceErrs[addr]; ok {
		return nil, err
	}
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (l *fakeLedger) NativeBalance(_ context.Context, addr string) (*big.Int, error) {
	return l.TokenBalance(nil, addr)
}

// fakeSigner hands out authorizations for any address without signing
// anything.
type fakeSigner struct{}

func (fakeSigner) AuthorizationFor(_ context.Context, address string) (chain.Authorization, error) {
	return fakeAuth{addr: address}, nil
}

type fakeAuth struct{ addr string }

func (a fakeAuth) Address() common.Address { return common.HexToAddress(a.addr) }

func (a fakeAuth) Opts(context.Context) (*bind.TransactOpts, error) {
	return nil, fmt.Errorf("not used in tests")
}

// memEscrowStore mirrors the conditional-update semantics of the pg repo.
type memEscrowStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.EscrowRequest
}

func newMemEscrowStore() *memEscrowStore {
	return &memEscrowStore{rows: map[uuid.UUID]*models.EscrowRequest{}}
}

func (s *memEscrowStore) Create(_ context.Context, e *models.EscrowRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.BillID == e.BillID {
			return errs.Conflictf("escrow request already exists for bill %s", e.BillID)
		}
	}
	cp := *e
	s.rows[e.ID] = &cp
	return nil
}

func (s *memEscrowStore) GetByID(_ context.Context, id uuid.UUID) (*models.EscrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, errs.NotFoundf("escrow request %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (s *memEscrowStore) GetByBillID(_ context.Context, billID string) (*models.EscrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.BillID == billID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("escrow request for bill %s not found", billID)
}

func (s *memEscrowStore) SetChainBillID(_ context.Context, id uuid.UUID, chainBillID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return errs.NotFoundf("escrow request %s not found", id)
	}
	if r.ChainBillID != nil && *r.ChainBillID != chainBillID {
		return errs.Conflictf("escrow %s already mapped to chain bill %d", id, *r.ChainBillID)
	}
	v := chainBillID
	r.ChainBillID = &v
	return nil
}

func (s *memEscrowStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to string, txHash, paymentType *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return errs.NotFoundf("escrow request %s not found", id)
	}
	if r.Status != from {
		return errs.Conflictf("escrow %s is no longer %s", id, from)
	}
	r.Status = to
	if txHash != nil {
		r.TxHash = txHash
	}
	if paymentType != nil {
		r.PaymentType = paymentType
	}
	return nil
}

type memWalletStore struct {
	mu   sync.Mutex
	rows map[string]*models.WalletBinding // keyed by address
}

func newMemWalletStore() *memWalletStore {
	return &memWalletStore{rows: map[string]*models.WalletBinding{}}
}

func (s *memWalletStore) Create(_ context.Context, w *models.WalletBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[w.Address]; ok {
		return errs.Conflictf("address %s is already bound", w.Address)
	}
	for _, r := range s.rows {
		if r.ParticipantID == w.ParticipantID {
			return errs.Conflictf("participant %s already has a wallet", w.ParticipantID)
		}
	}
	cp := *w
	s.rows[w.Address] = &cp
	return nil
}

func (s *memWalletStore) GetByParticipant(_ context.Context, participantID uuid.UUID) (*models.WalletBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ParticipantID == participantID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("wallet for participant %s not found", participantID)
}

func (s *memWalletStore) GetByAddress(_ context.Context, address string) (*models.WalletBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[address]
	if !ok {
		return nil, errs.NotFoundf("wallet %s not found", address)
	}
	cp := *r
	return &cp, nil
}

func (s *memWalletStore) List(_ context.Context) ([]models.WalletBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WalletBinding
	for _, r := range s.rows {
		out = append(out, *r)
	}
	return out, nil
}

func (s *memWalletStore) UpdateCachedBalance(_ context.Context, address, balance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[address]
	if !ok {
		return errs.NotFoundf("wallet %s not found", address)
	}
	r.CachedBalance = balance
	return nil
}

type memBillStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Bill
}

func newMemBillStore() *memBillStore {
	return &memBillStore{rows: map[uuid.UUID]*models.Bill{}}
}

func (s *memBillStore) Find(_ context.Context, id uuid.UUID) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, errs.NotFoundf("bill %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (s *memBillStore) MarkPaid(_ context.Context, id uuid.UUID) error {
	return s.setStatus(id, models.BillStatusPaid)
}

func (s *memBillStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	return s.setStatus(id, models.BillStatusFailed)
}

func (s *memBillStore) setStatus(id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return errs.NotFoundf("bill %s not found", id)
	}
	r.Status = status
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (s *memAuditStore) Log(_ context.Context, entry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memAuditStore) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, _, _ int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Stream string
	Type   string
	Data   map[string]any
}

func (p *memPublisher) Publish(_ context.Context, stream string, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Stream: stream, Type: ev.Type, Data: ev.Payload})
	return nil
}

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testLogger() *zap.Logger { return zap.NewNop() }
