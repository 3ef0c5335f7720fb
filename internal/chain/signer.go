package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/errs"
)

// RemoteSigner talks to the wallet/signing sidecar over its internal API.
// The sidecar custodies key material and signs raw transactions for the
// addresses it manages; this process never handles private keys.
type RemoteSigner struct {
	baseURL    string
	chainID    *big.Int
	httpClient *http.Client
	log        *zap.Logger
}

func NewRemoteSigner(baseURL string, chainID int64, log *zap.Logger) *RemoteSigner {
	return &RemoteSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: big.NewInt(chainID),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// AuthorizationFor returns an authorization capability for the given address.
// The capability is lazy: no sidecar round trip happens until a transaction
// actually needs signing.
func (s *RemoteSigner) AuthorizationFor(ctx context.Context, address string) (Authorization, error) {
	a, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	return &remoteAuthorization{signer: s, addr: a}, nil
}

type remoteAuthorization struct {
	signer *RemoteSigner
	addr   common.Address
}

func (a *remoteAuthorization) Address() common.Address { return a.addr }

func (a *remoteAuthorization) Opts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{
		From:    a.addr,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != a.addr {
				return nil, fmt.Errorf("signer asked to sign for %s, authorized for %s", addr.Hex(), a.addr.Hex())
			}
			return a.signer.signTx(ctx, addr, tx)
		},
	}, nil
}

type signRequest struct {
	Address string `json:"address"`
	ChainID int64  `json:"chain_id"`
	Tx      string `json:"tx"` // unsigned tx, RLP hex
}

type signResponse struct {
	SignedTx string `json:"signed_tx"`
}

func (s *RemoteSigner) signTx(ctx context.Context, addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode tx: %w", err)
	}

	body, err := json.Marshal(signRequest{
		Address: addr.Hex(),
		ChainID: s.chainID.Int64(),
		Tx:      hexutil.Encode(raw),
	})
	if err != nil {
		return nil, err
	}

	url := s.baseURL + "/internal/sign"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errs.Unavailablef("signer service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return nil, errs.Validationf("signer holds no key for %s", addr.Hex())
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, errs.Unavailablef("signer service returned %d: %s", resp.StatusCode, string(b))
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode signer response: %w", err)
	}

	signedRaw, err := hexutil.Decode(out.SignedTx)
	if err != nil {
		return nil, fmt.Errorf("decode signed tx: %w", err)
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(signedRaw); err != nil {
		return nil, fmt.Errorf("unmarshal signed tx: %w", err)
	}

	s.log.Debug("transaction signed",
		zap.String("address", addr.Hex()),
		zap.String("tx_hash", signed.Hash().Hex()),
	)
	return signed, nil
}
