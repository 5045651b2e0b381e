package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/rpcclient"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

// rpcCaller is the part of rpcclient.Client used here.
type rpcCaller interface {
	RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
	Shutdown()
}

// Verus talks to a verusd wallet over JSON-RPC.
type Verus struct {
	logger *logger.Logger
	client rpcCaller
}

// NewVerus connects to the daemon in HTTP POST mode, so no websocket is needed.
func NewVerus(host, user, password string, logger *logger.Logger) (*Verus, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the verus RPC server: %w", err)
	}
	return &Verus{client: client, logger: logger}, nil
}

func (v *Verus) Close() {
	v.client.Shutdown()
}

func (v *Verus) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		raw = append(raw, b)
	}
	result, err := v.client.RawRequest(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}
	return result, nil
}

// NewAddress calls getnewaddress. An empty or malformed reply is reported as an error
// so it can be retried; the daemon is known to return those under load.
func (v *Verus) NewAddress(ctx context.Context) (string, error) {
	result, err := v.call(ctx, "getnewaddress")
	if err != nil {
		return "", err
	}
	var address string
	if err := json.Unmarshal(result, &address); err != nil {
		return "", fmt.Errorf("malformed getnewaddress response: %w", err)
	}
	if address == "" {
		return "", fmt.Errorf("empty getnewaddress response")
	}
	v.logger.Debug("Generated new address", "address", address)
	return address, nil
}

type sendOutput struct {
	Address  string          `json:"address"`
	Currency string          `json:"currency"`
	Amount   json.RawMessage `json:"amount"`
}

// SendCurrency pays out from the bot wallet with sendcurrency and returns the opid.
func (v *Verus) SendCurrency(ctx context.Context, address string, amount models.Amount) (string, error) {
	outputs := []sendOutput{{
		Address:  address,
		Currency: strings.ToLower(models.Ticker),
		Amount:   json.RawMessage(amount.Coins().String()),
	}}
	result, err := v.call(ctx, "sendcurrency", "*", outputs)
	if err != nil {
		return "", err
	}
	var opid string
	if err := json.Unmarshal(result, &opid); err != nil || opid == "" {
		return "", fmt.Errorf("malformed sendcurrency response: %s", string(result))
	}
	v.logger.Info("Payment submitted", "address", address, "amount", amount.String(), "opid", opid)
	return opid, nil
}

type operationStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		TxID string `json:"txid"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OperationTxID checks z_getoperationstatus once. ErrOperationPending means "ask again later".
func (v *Verus) OperationTxID(ctx context.Context, opid string) (string, error) {
	result, err := v.call(ctx, "z_getoperationstatus", []string{opid})
	if err != nil {
		return "", err
	}
	var statuses []operationStatus
	if err := json.Unmarshal(result, &statuses); err != nil {
		return "", fmt.Errorf("malformed z_getoperationstatus response: %w", err)
	}
	if len(statuses) == 0 {
		return "", fmt.Errorf("operation %s not found", opid)
	}

	status := statuses[0]
	switch status.Status {
	case "success":
		if status.Result == nil || status.Result.TxID == "" {
			return "", fmt.Errorf("operation %s finished without txid", opid)
		}
		return status.Result.TxID, nil
	case "failed", "cancelled":
		msg := status.Status
		if status.Error != nil {
			msg = status.Error.Message
		}
		return "", fmt.Errorf("%w: %s: %s", models.ErrOperationFailed, opid, msg)
	default:
		return "", models.ErrOperationPending
	}
}
