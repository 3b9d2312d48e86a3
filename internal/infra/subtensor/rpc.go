package subtensor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Signer provides wallet addresses and extrinsic signatures. Key handling
// lives in the wallet package; the client only consumes signatures.
type Signer interface {
	ColdkeyAddress() string
	HotkeyAddress() string
	SignColdkey(msg []byte) ([]byte, error)
	SignHotkey(msg []byte) ([]byte, error)
}

// RPCClient implements Client over the node's JSON-RPC interface. Subtensor
// nodes expose JSON-RPC on both websocket and HTTP transports; this client
// uses HTTP POST.
type RPCClient struct {
	network    domain.Network
	endpoint   string
	httpClient *http.Client
	signer     Signer
	log        *slog.Logger

	reqID int64
}

// NewRPCClient creates a client bound to one network endpoint.
func NewRPCClient(network domain.Network, endpointDomain string, signer Signer, timeout time.Duration, log *slog.Logger) *RPCClient {
	if log == nil {
		log = slog.Default()
	}
	return &RPCClient{
		network:  network,
		endpoint: httpEndpoint(network.EndpointURL(endpointDomain)),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		signer: signer,
		log:    log,
	}
}

// Network returns the network this client is bound to.
func (c *RPCClient) Network() domain.Network { return c.network }

// httpEndpoint rewrites a websocket endpoint URL to its HTTP equivalent.
func httpEndpoint(url string) string {
	if strings.HasPrefix(url, "wss://") {
		return "https://" + strings.TrimPrefix(url, "wss://")
	}
	if strings.HasPrefix(url, "ws://") {
		return "http://" + strings.TrimPrefix(url, "ws://")
	}
	return url
}

// call makes a single JSON-RPC call and decodes the result into out.
func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	c.reqID++
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.reqID,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *RPCClient) GetCurrentBlock(ctx context.Context) (uint64, error) {
	var block uint64
	if err := c.call(ctx, "subtensor_getCurrentBlock", nil, &block); err != nil {
		return 0, err
	}
	return block, nil
}

func (c *RPCClient) GetNextEpochStartBlock(ctx context.Context, netuid int, block uint64) (uint64, bool, error) {
	var next *uint64
	if err := c.call(ctx, "subtensor_getNextEpochStartBlock", []any{netuid, block}, &next); err != nil {
		return 0, false, err
	}
	if next == nil {
		return 0, false, nil
	}
	return *next, true, nil
}

func (c *RPCClient) Tempo(ctx context.Context, netuid int) (uint64, error) {
	var tempo uint64
	if err := c.call(ctx, "subtensor_getTempo", []any{netuid}, &tempo); err != nil {
		return 0, err
	}
	return tempo, nil
}

func (c *RPCClient) GetOwnedHotkeys(ctx context.Context, coldkey string) ([]string, error) {
	var hotkeys []string
	if err := c.call(ctx, "subtensor_getOwnedHotkeys", []any{coldkey}, &hotkeys); err != nil {
		return nil, err
	}
	return hotkeys, nil
}

func (c *RPCClient) GetStake(ctx context.Context, coldkey, hotkey string, netuid int) (domain.Balance, error) {
	var rao uint64
	if err := c.call(ctx, "subtensor_getStake", []any{coldkey, hotkey, netuid}, &rao); err != nil {
		return 0, err
	}
	return domain.Balance(rao), nil
}

func (c *RPCClient) IsHotkeyRegisteredOnSubnet(ctx context.Context, hotkey string, netuid int) (bool, error) {
	var registered bool
	if err := c.call(ctx, "subtensor_isHotkeyRegistered", []any{hotkey, netuid}, &registered); err != nil {
		return false, err
	}
	return registered, nil
}

func (c *RPCClient) GetUIDForHotkey(ctx context.Context, hotkey string, netuid int) (int, error) {
	var uid int
	if err := c.call(ctx, "subtensor_getUidForHotkey", []any{hotkey, netuid}, &uid); err != nil {
		return 0, err
	}
	return uid, nil
}

func (c *RPCClient) QueryState(ctx context.Context, name string, params ...any) (any, error) {
	var result any
	if err := c.call(ctx, "subtensor_queryModuleState", append([]any{name}, params...), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// extrinsicResult is the node's response to a signed submission.
type extrinsicResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// submitExtrinsic signs a call payload with the coldkey and submits it.
func (c *RPCClient) submitExtrinsic(ctx context.Context, call string, args map[string]any) (bool, string, error) {
	payload, err := json.Marshal(map[string]any{"call": call, "args": args})
	if err != nil {
		return false, "", fmt.Errorf("encode %s call: %w", call, err)
	}
	sig, err := c.signer.SignColdkey(payload)
	if err != nil {
		return false, "", fmt.Errorf("sign %s call: %w", call, err)
	}

	var result extrinsicResult
	err = c.call(ctx, "subtensor_submitExtrinsic", []any{
		call,
		args,
		c.signer.ColdkeyAddress(),
		hex.EncodeToString(sig),
	}, &result)
	if err != nil {
		return false, "", err
	}
	return result.Success, result.Message, nil
}

func (c *RPCClient) MoveStake(ctx context.Context, p MoveStakeParams) (bool, error) {
	ok, message, err := c.submitExtrinsic(ctx, "move_stake", map[string]any{
		"origin_hotkey":      p.OriginHotkey,
		"destination_hotkey": p.DestinationHotkey,
		"origin_netuid":      p.OriginNetuid,
		"destination_netuid": p.DestinationNetuid,
		"move_all_stake":     p.MoveAllStake,
		"amount":             uint64(p.Amount),
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("move_stake rejected: %s", message)
	}
	return true, nil
}

func (c *RPCClient) TransferStake(ctx context.Context, p TransferStakeParams) (bool, error) {
	ok, message, err := c.submitExtrinsic(ctx, "transfer_stake", map[string]any{
		"destination_coldkey":   p.DestinationColdkey,
		"hotkey":                p.Hotkey,
		"origin_netuid":         p.OriginNetuid,
		"destination_netuid":    p.DestinationNetuid,
		"amount":                uint64(p.Amount),
		"wait_for_inclusion":    p.WaitForInclusion,
		"wait_for_finalization": p.WaitForFinalization,
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("transfer_stake rejected: %s", message)
	}
	return true, nil
}

func (c *RPCClient) SetWeights(ctx context.Context, p SetWeightsParams) (bool, string, error) {
	return c.submitExtrinsic(ctx, "set_weights", map[string]any{
		"netuid":                p.Netuid,
		"uids":                  p.UIDs,
		"weights":               p.Weights,
		"version_key":           p.VersionKey,
		"hotkey":                c.signer.HotkeyAddress(),
		"wait_for_inclusion":    p.WaitForInclusion,
		"wait_for_finalization": p.WaitForFinalization,
	})
}

// Close releases idle connections. It never fails; the signature satisfies
// best-effort teardown during rotation.
func (c *RPCClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
