package multisend

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/odcpw/berabundle-sub001/pkg/bundle"
)

// Per-entry layout: 1 byte operation kind, 20 byte address, 32 byte value,
// 32 byte data length, then the data with no padding between entries.
const entryOverheadBytes = 1 + 20 + 32 + 32

// MultiSendSelector is the 4-byte selector of multiSend(bytes).
var MultiSendSelector = crypto.Keccak256([]byte("multiSend(bytes)"))[:4]

// EncodeBatch ABI-encodes the operations into a single multiSend(bytes) call.
// Layout must match the batched-execution contract byte for byte; any
// deviation reverts silently on chain. A single operation must bypass
// batching entirely, and an empty list is a programming error.
func EncodeBatch(operations []*bundle.BundleOperation) ([]byte, error) {
	if len(operations) == 0 {
		return nil, fmt.Errorf("refusing to encode an empty operation list")
	}
	if len(operations) == 1 {
		return nil, fmt.Errorf("single-operation bundles are sent directly, not batched")
	}

	var entries bytes.Buffer
	for i, op := range operations {
		if !common.IsHexAddress(op.To) {
			return nil, fmt.Errorf("operation %d has invalid target address '%s'", i, op.To)
		}
		value := op.Value
		if value == nil {
			value = big.NewInt(0)
		}

		entries.WriteByte(byte(op.Operation))
		entries.Write(common.HexToAddress(op.To).Bytes())
		entries.Write(common.LeftPadBytes(value.Bytes(), 32))
		entries.Write(common.LeftPadBytes(big.NewInt(int64(len(op.Data))).Bytes(), 32))
		entries.Write(op.Data)
	}

	entryBytes := entries.Bytes()

	// Single dynamic bytes parameter: selector, offset 0x20, length, payload
	// zero-padded to the next 32-byte boundary.
	var payload bytes.Buffer
	payload.Write(MultiSendSelector)
	payload.Write(common.LeftPadBytes(big.NewInt(0x20).Bytes(), 32))
	payload.Write(common.LeftPadBytes(big.NewInt(int64(len(entryBytes))).Bytes(), 32))
	payload.Write(entryBytes)
	if rem := len(entryBytes) % 32; rem != 0 {
		payload.Write(make([]byte, 32-rem))
	}

	return payload.Bytes(), nil
}

// DecodeBatch reverses EncodeBatch. Used to cross-check encodings round-trip
// exactly.
func DecodeBatch(payload []byte) ([]*bundle.BundleOperation, error) {
	if len(payload) < 4+32+32 {
		return nil, fmt.Errorf("payload too short to be a batched call")
	}
	if !bytes.Equal(payload[:4], MultiSendSelector) {
		return nil, fmt.Errorf("unexpected selector %x", payload[:4])
	}

	offset := new(big.Int).SetBytes(payload[4:36]).Int64()
	if offset != 0x20 {
		return nil, fmt.Errorf("unexpected parameter offset %d", offset)
	}
	total := new(big.Int).SetBytes(payload[36:68]).Int64()
	if int64(len(payload)-68) < total {
		return nil, fmt.Errorf("declared entry length %d exceeds payload", total)
	}

	entryBytes := payload[68 : 68+total]
	operations := make([]*bundle.BundleOperation, 0)

	cursor := int64(0)
	for cursor < total {
		if total-cursor < entryOverheadBytes {
			return nil, fmt.Errorf("truncated entry at byte %d", cursor)
		}
		operation := bundle.OperationKind(entryBytes[cursor])
		cursor++

		to := common.BytesToAddress(entryBytes[cursor : cursor+20])
		cursor += 20

		value := new(big.Int).SetBytes(entryBytes[cursor : cursor+32])
		cursor += 32

		dataLen := new(big.Int).SetBytes(entryBytes[cursor : cursor+32]).Int64()
		cursor += 32

		if total-cursor < dataLen {
			return nil, fmt.Errorf("entry data overruns payload at byte %d", cursor)
		}
		data := make([]byte, dataLen)
		copy(data, entryBytes[cursor:cursor+dataLen])
		cursor += dataLen

		operations = append(operations, &bundle.BundleOperation{
			To:        strings.ToLower(to.Hex()),
			Value:     value,
			Data:      data,
			Operation: operation,
		})
	}

	return operations, nil
}
