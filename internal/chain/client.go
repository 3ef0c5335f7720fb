package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/errs"
)

var billCreatedTopic = crypto.Keccak256Hash([]byte("BillCreated(uint256,address,address,uint256)"))

// On-chain bill status enum values.
const (
	BillStateNumPending  = 0
	BillStateNumPaid     = 1
	BillStateNumRejected = 2
)

// Config holds the connection parameters for the ledger network and the two
// deployed contracts.
type Config struct {
	RPCURL         string
	ChainID        int64
	TokenContract  string
	BillContract   string
	TokenDecimals  int
	ConfirmTimeout time.Duration
}

// Bill is the decoded on-chain bill record.
type Bill struct {
	ID                 int64      `json:"id"`
	Beneficiary        string     `json:"beneficiary"`
	PaymentDestination string     `json:"payment_destination"`
	Sponsor            string     `json:"sponsor"`
	Amount             string     `json:"amount"` // human units
	AmountUnits        *big.Int   `json:"-"`      // fixed-point
	Description        string     `json:"description"`
	Status             string     `json:"status"` // pending/paid/rejected
	CreatedAt          time.Time  `json:"created_at"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
}

// rawBill matches the getBill tuple layout.
type rawBill struct {
	Id                 *big.Int
	Beneficiary        common.Address
	PaymentDestination common.Address
	Sponsor            common.Address
	Amount             *big.Int
	Description        string
	Status             uint8
	CreatedAt          *big.Int
	PaidAt             *big.Int
}

// Authorization is an opaque capability proving that a participant has
// authorized a specific on-chain action. Implementations live outside the
// core; the core never sees raw key material.
type Authorization interface {
	Address() common.Address
	Opts(ctx context.Context) (*bind.TransactOpts, error)
}

// AuthorizationProvider mints authorizations for ledger addresses.
type AuthorizationProvider interface {
	AuthorizationFor(ctx context.Context, address string) (Authorization, error)
}

// Client wraps the ledger RPC connection and the token + bill-escrow contract
// bindings. It is constructed once at process start and passed by reference
// into the services; it holds no mutable state beyond the connection.
type Client struct {
	eth            *ethclient.Client
	billAddr       common.Address
	tokenAddr      common.Address
	bill           *bind.BoundContract
	token          *bind.BoundContract
	chainID        *big.Int
	decimals       int
	confirmTimeout time.Duration
	log            *zap.Logger
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.TokenContract) {
		return nil, errs.Validationf("invalid token contract address %q", cfg.TokenContract)
	}
	if !common.IsHexAddress(cfg.BillContract) {
		return nil, errs.Validationf("invalid bill contract address %q", cfg.BillContract)
	}
	if cfg.TokenDecimals <= 0 {
		cfg.TokenDecimals = DefaultDecimals
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errs.Unavailablef("dial rpc %s: %w", cfg.RPCURL, err)
	}

	billParsed, err := abi.JSON(strings.NewReader(billPaymentABI))
	if err != nil {
		return nil, fmt.Errorf("parse bill payment abi: %w", err)
	}
	tokenParsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	billAddr := common.HexToAddress(cfg.BillContract)
	tokenAddr := common.HexToAddress(cfg.TokenContract)

	c := &Client{
		eth:            eth,
		billAddr:       billAddr,
		tokenAddr:      tokenAddr,
		bill:           bind.NewBoundContract(billAddr, billParsed, eth, eth, eth),
		token:          bind.NewBoundContract(tokenAddr, tokenParsed, eth, eth, eth),
		chainID:        big.NewInt(cfg.ChainID),
		decimals:       cfg.TokenDecimals,
		confirmTimeout: cfg.ConfirmTimeout,
		log:            log,
	}

	log.Info("chain client connected",
		zap.String("rpc", cfg.RPCURL),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("bill_contract", billAddr.Hex()),
		zap.String("token_contract", tokenAddr.Hex()),
	)
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// ChainID returns the configured network id.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// Decimals returns the token's fixed-point precision.
func (c *Client) Decimals() int { return c.decimals }

// --- Reads ---

// GetBill reads a bill record by its on-chain id.
func (c *Client) GetBill(ctx context.Context, billID int64) (*Bill, error) {
	var out []interface{}
	err := c.bill.Call(&bind.CallOpts{Context: ctx}, &out, "getBill", big.NewInt(billID))
	if err != nil {
		return nil, classifyCallErr(fmt.Errorf("getBill %d: %w", billID, err))
	}
	raw := *abi.ConvertType(out[0], new(rawBill)).(*rawBill)
	return c.decodeBill(raw), nil
}

// BeneficiaryBills returns the on-chain bill ids created by an address.
func (c *Client) BeneficiaryBills(ctx context.Context, addr string) ([]int64, error) {
	return c.billList(ctx, "getBeneficiaryBills", addr)
}

// SponsorBills returns the on-chain bill ids directed at a sponsor address.
func (c *Client) SponsorBills(ctx context.Context, addr string) ([]int64, error) {
	return c.billList(ctx, "getSponsorBills", addr)
}

func (c *Client) billList(ctx context.Context, method, addr string) ([]int64, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := c.bill.Call(&bind.CallOpts{Context: ctx}, &out, method, a); err != nil {
		return nil, classifyCallErr(fmt.Errorf("%s %s: %w", method, addr, err))
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, v.Int64())
	}
	return ids, nil
}

// TokenBalance reads the authoritative U2K balance of an address, in
// fixed-point units.
func (c *Client) TokenBalance(ctx context.Context, addr string) (*big.Int, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := c.token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", a); err != nil {
		return nil, classifyCallErr(fmt.Errorf("balanceOf %s: %w", addr, err))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// NativeBalance reads the native currency balance of an address, in wei.
func (c *Client) NativeBalance(ctx context.Context, addr string) (*big.Int, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	bal, err := c.eth.BalanceAt(ctx, a, nil)
	if err != nil {
		return nil, classifyCallErr(fmt.Errorf("native balance %s: %w", addr, err))
	}
	return bal, nil
}

// Allowance reads how many token units the bill contract may currently spend
// on behalf of owner.
func (c *Client) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	a, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := c.token.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", a, c.billAddr); err != nil {
		return nil, classifyCallErr(fmt.Errorf("allowance %s: %w", owner, err))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// --- Writes (block until confirmed inclusion, bounded by ConfirmTimeout) ---

// CreateBill submits a bill-creation transaction signed by the beneficiary
// and returns the receipt's transaction hash plus the ledger-assigned bill
// id extracted from the BillCreated event. A missing event aborts the whole
// operation; no identifier is ever defaulted.
func (c *Client) CreateBill(ctx context.Context, auth Authorization, sponsor, destination string, amount *big.Int, description string) (string, int64, error) {
	sp, err := parseAddress(sponsor)
	if err != nil {
		return "", 0, err
	}
	dest, err := parseAddress(destination)
	if err != nil {
		return "", 0, err
	}

	receipt, hash, err := c.transact(ctx, auth, c.bill, nil, "createBill", sp, dest, amount, description)
	if err != nil {
		return "", 0, err
	}

	id, err := c.billCreatedID(receipt)
	if err != nil {
		return "", 0, err
	}
	return hash, id, nil
}

// PayBillWithNative pays a bill with native currency, sending value wei.
func (c *Client) PayBillWithNative(ctx context.Context, auth Authorization, billID int64, value *big.Int) (string, error) {
	_, hash, err := c.transact(ctx, auth, c.bill, value, "payBillWithNative", big.NewInt(billID))
	return hash, err
}

// PayBillWithToken pays a bill with U2K tokens. The required allowance must
// already be in place; BillEscrowService sequences Approve before this call.
func (c *Client) PayBillWithToken(ctx context.Context, auth Authorization, billID int64) (string, error) {
	_, hash, err := c.transact(ctx, auth, c.bill, nil, "payBillWithU2K", big.NewInt(billID))
	return hash, err
}

// Approve grants the bill contract an allowance of amount token units from
// the authorizing address.
func (c *Client) Approve(ctx context.Context, auth Authorization, amount *big.Int) (string, error) {
	_, hash, err := c.transact(ctx, auth, c.token, nil, "approve", c.billAddr, amount)
	return hash, err
}

// RejectBill declines a bill on behalf of its sponsor.
func (c *Client) RejectBill(ctx context.Context, auth Authorization, billID int64) (string, error) {
	_, hash, err := c.transact(ctx, auth, c.bill, nil, "rejectBill", big.NewInt(billID))
	return hash, err
}

func (c *Client) transact(ctx context.Context, auth Authorization, contract *bind.BoundContract, value *big.Int, method string, args ...interface{}) (*types.Receipt, string, error) {
	opts, err := auth.Opts(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("authorization for %s: %w", method, err)
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, "", classifySubmitErr(fmt.Errorf("%s: %w", method, err))
	}

	c.log.Debug("transaction submitted",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("from", auth.Address().Hex()),
	)

	wctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(wctx, c.eth, tx)
	if err != nil {
		// The transaction may still confirm later; the caller is told the
		// outcome is unknown, not that it failed.
		if wctx.Err() != nil && ctx.Err() == nil {
			return nil, "", errs.Indeterminatef("%s: transaction %s not confirmed within %s", method, tx.Hash().Hex(), c.confirmTimeout)
		}
		return nil, "", errs.Unavailablef("%s: await receipt for %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, "", errs.Revertedf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}
	return receipt, tx.Hash().Hex(), nil
}

// billCreatedID extracts the ledger-assigned bill id from the BillCreated
// event in a creation receipt.
func (c *Client) billCreatedID(receipt *types.Receipt) (int64, error) {
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != c.billAddr {
			continue
		}
		if len(lg.Topics) < 2 || lg.Topics[0] != billCreatedTopic {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64(), nil
	}
	return 0, fmt.Errorf("transaction %s: BillCreated event not found in receipt", receipt.TxHash.Hex())
}

func (c *Client) decodeBill(raw rawBill) *Bill {
	b := &Bill{
		ID:                 raw.Id.Int64(),
		Beneficiary:        raw.Beneficiary.Hex(),
		PaymentDestination: raw.PaymentDestination.Hex(),
		Sponsor:            raw.Sponsor.Hex(),
		Amount:             FromTokenUnits(raw.Amount, c.decimals),
		AmountUnits:        raw.Amount,
		Description:        raw.Description,
		Status:             billStateName(raw.Status),
		CreatedAt:          time.Unix(raw.CreatedAt.Int64(), 0).UTC(),
	}
	if raw.PaidAt != nil && raw.PaidAt.Sign() > 0 {
		t := time.Unix(raw.PaidAt.Int64(), 0).UTC()
		b.PaidAt = &t
	}
	return b
}

func billStateName(status uint8) string {
	switch status {
	case BillStateNumPending:
		return "pending"
	case BillStateNumPaid:
		return "paid"
	case BillStateNumRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", status)
	}
}

// --- Address helpers ---

// ValidAddress reports whether s is a well-formed ledger address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ChecksumAddress normalizes s to its EIP-55 checksummed form.
func ChecksumAddress(s string) (string, error) {
	a, err := parseAddress(s)
	if err != nil {
		return "", err
	}
	return a.Hex(), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errs.Validationf("invalid ledger address %q", s)
	}
	return common.HexToAddress(s), nil
}

// --- Error classification ---

func classifyCallErr(err error) error {
	if isRevert(err) {
		return errs.Revertedf("%w", err)
	}
	return errs.Unavailablef("%w", err)
}

func classifySubmitErr(err error) error {
	// Gas estimation runs the call; a revert here means the ledger rejected
	// the operation, not that the network is down.
	if isRevert(err) {
		return errs.Revertedf("%w", err)
	}
	return errs.Unavailablef("%w", err)
}

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "execution reverted") ||
		strings.Contains(err.Error(), "revert")
}
