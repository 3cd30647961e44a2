// Package nodechain provides an execution backend speaking JSON-RPC to a development node such as Anvil. Contracts
// are deployed from compiled artifacts and entry points are invoked as signed-by-node transactions from the node's
// unlocked accounts.
package nodechain

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/compilation"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/pkg/errors"
)

const (
	// receiptPollAttempts bounds how many times a transaction receipt is polled before the backend is considered
	// unresponsive.
	receiptPollAttempts = 100

	// receiptPollDelay is the sleep between receipt polls.
	receiptPollDelay = 50 * time.Millisecond

	// transactionGasLimit is the gas cap attached to every transaction. Development nodes accept it regardless of
	// block limits.
	transactionGasLimit = hexutil.Uint64(30_000_000)

	// nonDeployerSenderBias is the probability an invocation is sent from an account other than the deployer, so
	// access-control paths guarded by msg.sender get exercised from both sides.
	nonDeployerSenderBias = 0.7

	// revertedPrefix is the framing development nodes put in front of a revert reason on eth_call.
	revertedPrefix = "execution reverted:"
)

// transactionReceipt mirrors the receipt fields the adapter reads.
type transactionReceipt struct {
	Status          hexutil.Uint64  `json:"status"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	BlockNumber     hexutil.Big     `json:"blockNumber"`
	ContractAddress *common.Address `json:"contractAddress"`
}

// NodeChain is a chain.Adapter over a JSON-RPC development node.
type NodeChain struct {
	// logger describes the NodeChain's log output channel.
	logger *logging.Logger

	// client is the JSON-RPC connection to the node.
	client *rpc.Client

	// contracts maps contract names to the compiled artifacts they deploy from.
	contracts map[string]*compilation.CompiledContract

	// deployed maps deployed addresses back to their artifacts, for method call encoding.
	deployed map[common.Address]*compilation.CompiledContract

	// accounts lists the node's unlocked accounts. The first one is the deployer.
	accounts []common.Address

	// nonces tracks the next nonce per account locally, seeded from the node on first use.
	nonces map[common.Address]uint64

	// randomProvider drives sender rotation.
	randomProvider *rand.Rand
}

// NewNodeChain connects to a development node, queries its unlocked accounts and indexes the provided compiled
// contracts for deployment.
func NewNodeChain(ctx context.Context, rpcURL string, compiled []*compilation.CompiledContract, logger *logging.Logger) (*NodeChain, error) {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("component", logging.ChainComponent)
	}

	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to node at %v", rpcURL)
	}

	var accounts []common.Address
	if err = client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Wrap(err, "could not query node accounts")
	}
	if len(accounts) == 0 {
		return nil, errors.Errorf("node at %v exposes no unlocked accounts", rpcURL)
	}

	contractIndex := make(map[string]*compilation.CompiledContract, len(compiled))
	for _, contract := range compiled {
		contractIndex[contract.Name] = contract
	}

	return &NodeChain{
		logger:         logger,
		client:         client,
		contracts:      contractIndex,
		deployed:       make(map[common.Address]*compilation.CompiledContract),
		accounts:       accounts,
		nonces:         make(map[common.Address]uint64),
		randomProvider: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close tears down the JSON-RPC connection.
func (n *NodeChain) Close() {
	n.client.Close()
}

// Deploy sends a contract creation transaction from the deployer account and waits for its receipt. A missing
// artifact or a reverted deployment is an error, which the engine treats as fatal for the contract only.
func (n *NodeChain) Deploy(ctx context.Context, descriptor *contracts.ContractDescriptor, constructorArgs []valuegeneration.Value) (*chain.ContractHandle, error) {
	contract, ok := n.contracts[descriptor.Name]
	if !ok {
		return nil, errors.Errorf("no compiled artifact for contract %v", descriptor.Name)
	}

	args, err := toABIValues(constructorArgs)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode constructor arguments for %v", descriptor.Name)
	}
	data, err := contract.GetDeploymentMessageData(args)
	if err != nil {
		return nil, err
	}

	deployer := n.accounts[0]
	receipt, err := n.sendAndWait(ctx, deployer, nil, data)
	if err != nil {
		return nil, err
	}
	if receipt.Status == 0 || receipt.ContractAddress == nil {
		return nil, errors.Errorf("deployment of %v reverted", descriptor.Name)
	}

	n.deployed[*receipt.ContractAddress] = contract
	n.logger.Debug("Deployed ", descriptor.Name, " at ", receipt.ContractAddress.Hex())
	return &chain.ContractHandle{ContractName: descriptor.Name, Address: *receipt.ContractAddress}, nil
}

// Invoke encodes and sends an entry point call, waits for its receipt and classifies the outcome. Values that
// cannot be ABI-encoded yield a classified failure; only transport problems return an error.
func (n *NodeChain) Invoke(ctx context.Context, handle *chain.ContractHandle, entryPoint *contracts.EntryPoint, args []valuegeneration.Value) (*chain.InvocationResult, error) {
	contract, ok := n.deployed[handle.Address]
	if !ok {
		return nil, errors.Errorf("no contract deployed at %v", handle.Address.Hex())
	}

	abiArgs, err := toABIValues(args)
	var data []byte
	if err == nil {
		data, err = contract.Abi.Pack(entryPoint.Name, abiArgs...)
	}
	if err != nil {
		return &chain.InvocationResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("ABI encoding failed: %v", err),
		}, nil
	}

	sender := n.pickSender()
	receipt, err := n.sendAndWait(ctx, sender, &handle.Address, data)
	if err != nil {
		return nil, err
	}

	if receipt.Status == 1 {
		return &chain.InvocationResult{Success: true, GasUsed: uint64(receipt.GasUsed)}, nil
	}
	return &chain.InvocationResult{
		Success:      false,
		ErrorMessage: n.revertReason(ctx, sender, handle.Address, data, &receipt.BlockNumber),
		GasUsed:      uint64(receipt.GasUsed),
	}, nil
}

// Snapshot records the node's state via evm_snapshot.
func (n *NodeChain) Snapshot(ctx context.Context) (string, error) {
	var snapshotID string
	if err := n.client.CallContext(ctx, &snapshotID, "evm_snapshot"); err != nil {
		return "", errors.Wrap(err, "evm_snapshot failed")
	}
	return snapshotID, nil
}

// Revert restores the node to a recorded snapshot via evm_revert. Development nodes invalidate a snapshot once
// reverted to, so local nonce tracking is reset and re-seeded from the node.
func (n *NodeChain) Revert(ctx context.Context, snapshotID string) error {
	var reverted bool
	if err := n.client.CallContext(ctx, &reverted, "evm_revert", snapshotID); err != nil {
		return errors.Wrap(err, "evm_revert failed")
	}
	if !reverted {
		return errors.Errorf("node rejected revert to snapshot %v", snapshotID)
	}
	n.nonces = make(map[common.Address]uint64)
	return nil
}

// pickSender rotates the transaction sender: most invocations come from a non-deployer account when the node has
// more than one, the rest from the deployer.
func (n *NodeChain) pickSender() common.Address {
	if len(n.accounts) > 1 && n.randomProvider.Float64() < nonDeployerSenderBias {
		return n.accounts[1+n.randomProvider.Intn(len(n.accounts)-1)]
	}
	return n.accounts[0]
}

// nextNonce returns the sender's next nonce, seeding the local counter from the node's pending count on first use.
func (n *NodeChain) nextNonce(ctx context.Context, sender common.Address) (uint64, error) {
	if _, seeded := n.nonces[sender]; !seeded {
		var pending hexutil.Uint64
		if err := n.client.CallContext(ctx, &pending, "eth_getTransactionCount", sender, "pending"); err != nil {
			return 0, errors.Wrapf(err, "could not query nonce for %v", sender.Hex())
		}
		n.nonces[sender] = uint64(pending)
	}
	nonce := n.nonces[sender]
	n.nonces[sender] = nonce + 1
	return nonce, nil
}

// sendAndWait submits an eth_sendTransaction from an unlocked account and polls for its receipt, bounded by
// receiptPollAttempts. Every failure here is a backend failure.
func (n *NodeChain) sendAndWait(ctx context.Context, sender common.Address, to *common.Address, data []byte) (*transactionReceipt, error) {
	nonce, err := n.nextNonce(ctx, sender)
	if err != nil {
		return nil, err
	}

	txArgs := map[string]any{
		"from":  sender,
		"data":  hexutil.Bytes(data),
		"gas":   transactionGasLimit,
		"nonce": hexutil.Uint64(nonce),
	}
	if to != nil {
		txArgs["to"] = *to
	}

	var txHash common.Hash
	if err = n.client.CallContext(ctx, &txHash, "eth_sendTransaction", txArgs); err != nil {
		return nil, errors.Wrap(err, "eth_sendTransaction failed")
	}

	for attempt := 0; attempt < receiptPollAttempts; attempt++ {
		var receipt *transactionReceipt
		if err = n.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
			return nil, errors.Wrap(err, "eth_getTransactionReceipt failed")
		}
		if receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		case <-time.After(receiptPollDelay):
		}
	}
	return nil, errors.Errorf("transaction %v was not mined after %d receipt polls", txHash.Hex(), receiptPollAttempts)
}

// revertReason replays a reverted call via eth_call at the block it was mined in and extracts the node's revert
// message, trimmed of transport framing. If no reason can be recovered, a generic message is returned.
func (n *NodeChain) revertReason(ctx context.Context, sender common.Address, to common.Address, data []byte, blockNumber *hexutil.Big) string {
	callArgs := map[string]any{
		"from": sender,
		"to":   to,
		"data": hexutil.Bytes(data),
		"gas":  transactionGasLimit,
	}

	var result hexutil.Bytes
	err := n.client.CallContext(ctx, &result, "eth_call", callArgs, blockNumber)
	if err == nil {
		return "execution reverted"
	}

	return trimRevertFraming(err.Error())
}

// trimRevertFraming strips the node's revert framing off an eth_call error message, leaving the contract's own
// reason string.
func trimRevertFraming(message string) string {
	if idx := strings.Index(message, revertedPrefix); idx != -1 {
		if reason := strings.TrimSpace(message[idx+len(revertedPrefix):]); reason != "" {
			return reason
		}
		return "execution reverted"
	}
	return message
}
