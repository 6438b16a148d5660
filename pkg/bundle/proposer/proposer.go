package proposer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/odcpw/berabundle-sub001/internal/metrics"
	"github.com/odcpw/berabundle-sub001/internal/metrics/metricsTypes"
	"github.com/odcpw/berabundle-sub001/pkg/bundle"
	"github.com/odcpw/berabundle-sub001/pkg/bundle/multisend"
	"github.com/odcpw/berabundle-sub001/pkg/bundle/safetx"
	"github.com/odcpw/berabundle-sub001/pkg/bundle/signer"
	"github.com/odcpw/berabundle-sub001/pkg/clients/ethereum"
	"github.com/odcpw/berabundle-sub001/pkg/clients/safe"
	"github.com/odcpw/berabundle-sub001/pkg/utils"
	"go.uber.org/zap"
)

type ProposerConfig struct {
	ChainId           uint64
	MultiSendAddress  string
	TransactionUrlFmt string // optional override for the web UI link
}

// Proposer drives a bundle through hashing, signing and submission to the
// coordination service, recovering once from a hash-mismatch rejection.
type Proposer struct {
	safeClient  *safe.Client
	ethClient   *ethereum.Client
	config      *ProposerConfig
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewProposer(sc *safe.Client, ec *ethereum.Client, cfg *ProposerConfig, ms *metrics.MetricsSink, l *zap.Logger) *Proposer {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &Proposer{
		safeClient:  sc,
		ethClient:   ec,
		config:      cfg,
		metricsSink: ms,
		logger:      l,
	}
}

func failed(format string, args ...any) *bundle.ProposalResult {
	return &bundle.ProposalResult{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
	}
}

// Propose assembles the operations into one Safe transaction, signs its hash
// and submits it. Failures come back as a structured result so the
// interactive caller can react and retry; nothing is raised.
func (p *Proposer) Propose(ctx context.Context, data *bundle.SafeBundleData, s signer.ISigner) *bundle.ProposalResult {
	start := time.Now()
	defer func() {
		_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_ProposalDuration, time.Since(start), nil)
	}()

	if !utils.IsValidAddress(data.SafeAddress) {
		return failed("invalid safe address '%s'", data.SafeAddress)
	}
	if len(data.Operations) == 0 {
		return failed("no operations to propose")
	}

	to, callData, operation, err := p.assembleCall(data.Operations)
	if err != nil {
		return failed("failed to assemble bundle call: %s", err)
	}

	// The nonce is fetched fresh immediately before hashing and is only
	// reused if the service reports a mismatch for this same transaction.
	info, err := p.safeClient.GetSafeInfo(ctx, data.SafeAddress)
	if err != nil {
		return failed("failed to fetch safe nonce: %s", err)
	}

	tx := &bundle.SafeTransaction{
		To:        to,
		Value:     big.NewInt(0),
		Data:      callData,
		Operation: operation,
		Nonce:     info.Nonce,
	}

	hash, err := safetx.ComputeTransactionHash(data.SafeAddress, p.config.ChainId, tx)
	if err != nil {
		return failed("failed to compute transaction hash: %s", err)
	}
	hashHex := strings.ToLower(hash.Hex())

	signature, err := s.SignHash(hash.Bytes())
	if err != nil {
		return failed("failed to sign transaction hash: %s", err)
	}

	proposal := p.buildProposalRequest(data.SafeAddress, tx, hashHex, s.Address(), signature)

	err = p.safeClient.ProposeTransaction(ctx, data.SafeAddress, proposal)
	if mismatch, ok := err.(*safe.HashMismatchError); ok {
		_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_ProposalMismatch, nil, 1)

		p.logger.Sugar().Warnw("Re-signing server-derived hash after mismatch",
			zap.String("localHash", hashHex),
			zap.String("serverHash", mismatch.Expected),
		)

		hashHex = mismatch.Expected
		signature, err = s.SignHash(common.HexToHash(mismatch.Expected).Bytes())
		if err != nil {
			return failed("failed to re-sign server hash: %s", err)
		}
		proposal.ContractTransactionHash = hashHex
		proposal.Signature = utils.ConvertBytesToString(signature)

		// One recovery attempt only. A second mismatch means the nonce
		// raced and the whole proposal must be rebuilt by the caller.
		if err = p.safeClient.ProposeTransaction(ctx, data.SafeAddress, proposal); err != nil {
			return failed("proposal failed after hash recovery: %s", err)
		}
	} else if err != nil {
		return failed("proposal failed: %s", err)
	}

	_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_ProposalSubmitted, nil, 1)

	// The service may already count the proposal as our confirmation, so a
	// failure here is logged without flipping the result.
	if err := p.safeClient.ConfirmTransaction(ctx, hashHex, proposal.Signature); err != nil {
		p.logger.Sugar().Warnw("Failed to confirm own proposal",
			zap.String("safeTxHash", hashHex),
			zap.Error(err),
		)
	}

	return &bundle.ProposalResult{
		Success:        true,
		SafeTxHash:     hashHex,
		TransactionUrl: p.transactionUrl(data.SafeAddress, hashHex),
	}
}

// assembleCall collapses the operations into a single (to, data, operation)
// triple: one operation passes through untouched, several get batched.
func (p *Proposer) assembleCall(operations []*bundle.BundleOperation) (string, []byte, bundle.OperationKind, error) {
	if len(operations) == 1 {
		op := operations[0]
		return op.To, op.Data, op.Operation, nil
	}

	encoded, err := multisend.EncodeBatch(operations)
	if err != nil {
		return "", nil, 0, err
	}
	return p.config.MultiSendAddress, encoded, bundle.OperationKind_Call, nil
}

func (p *Proposer) buildProposalRequest(safeAddress string, tx *bundle.SafeTransaction, hashHex string, sender string, signature []byte) *safe.ProposeTransactionRequest {
	return &safe.ProposeTransactionRequest{
		Safe:                    safeAddress,
		To:                      tx.To,
		Value:                   tx.Value.String(),
		Data:                    utils.ConvertBytesToString(tx.Data),
		Operation:               uint8(tx.Operation),
		SafeTxGas:               tx.SafeTxGas,
		BaseGas:                 tx.BaseGas,
		GasPrice:                "0",
		GasToken:                utils.NullEthereumAddressHex,
		RefundReceiver:          utils.NullEthereumAddressHex,
		Nonce:                   tx.Nonce,
		ContractTransactionHash: hashHex,
		Sender:                  sender,
		Signature:               utils.ConvertBytesToString(signature),
		Origin:                  fmt.Sprintf("berabundle:%s", uuid.New().String()),
	}
}

func (p *Proposer) transactionUrl(safeAddress string, safeTxHash string) string {
	urlFmt := p.config.TransactionUrlFmt
	if urlFmt == "" {
		urlFmt = "https://app.safe.global/transactions/tx?safe=berachain:%s&id=multisig_%s_%s"
	}
	return fmt.Sprintf(urlFmt, safeAddress, safeAddress, safeTxHash)
}

// SendDirect executes the operations from the signer's own account, one
// transaction per operation, waiting for each receipt before the next. A
// multisig is not involved; the raw transactions go straight to the chain.
func (p *Proposer) SendDirect(ctx context.Context, operations []*bundle.BundleOperation, s signer.ISigner) *bundle.ProposalResult {
	if len(operations) == 0 {
		return failed("no operations to send")
	}

	start := time.Now()
	defer func() {
		_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_ProposalDuration, time.Since(start), nil)
	}()

	from := s.Address()
	nonce, err := p.ethClient.GetPendingNonce(ctx, from)
	if err != nil {
		return failed("failed to fetch account nonce: %s", err)
	}
	gasPrice, err := p.ethClient.GetGasPrice(ctx)
	if err != nil {
		return failed("failed to fetch gas price: %s", err)
	}

	chainId := new(big.Int).SetUint64(p.config.ChainId)
	ethSigner := types.LatestSignerForChainID(chainId)

	var lastTxHash string
	for i, op := range operations {
		to := common.HexToAddress(op.To)
		value := op.Value
		if value == nil {
			value = big.NewInt(0)
		}

		gasLimit, err := p.ethClient.EstimateGas(ctx, &ethereum.EstimateGasCall{
			From:  from,
			To:    op.To,
			Value: hexutil.EncodeBig(value),
			Data:  utils.ConvertBytesToString(op.Data),
		})
		if err != nil {
			return failed("failed to estimate gas for operation %d: %s", i, err)
		}

		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce + uint64(i),
			To:       &to,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     op.Data,
		})

		sig, err := s.SignHash(ethSigner.Hash(tx).Bytes())
		if err != nil {
			return failed("failed to sign operation %d: %s", i, err)
		}
		// The signer yields the 27/28 convention; transaction encoding wants
		// the raw recovery id.
		sig[64] -= 27

		signedTx, err := tx.WithSignature(ethSigner, sig)
		if err != nil {
			return failed("failed to attach signature for operation %d: %s", i, err)
		}

		raw, err := signedTx.MarshalBinary()
		if err != nil {
			return failed("failed to encode operation %d: %s", i, err)
		}
		lastTxHash, err = p.ethClient.SendRawTransaction(ctx, utils.ConvertBytesToString(raw))
		if err != nil {
			return failed("failed to broadcast operation %d: %s", i, err)
		}

		receipt, err := p.ethClient.WaitForReceipt(ctx, lastTxHash, 0)
		if err != nil {
			return failed("timed out waiting for receipt of operation %d: %s", i, err)
		}
		if !receipt.Succeeded() {
			return failed("operation %d reverted in transaction %s", i, lastTxHash)
		}

		p.logger.Sugar().Infow("Operation executed",
			zap.Int("operation", i),
			zap.String("txHash", lastTxHash),
			zap.Uint64("blockNumber", receipt.BlockNumberUint64()),
		)
	}

	return &bundle.ProposalResult{
		Success:    true,
		SafeTxHash: lastTxHash,
	}
}
