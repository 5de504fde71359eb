package bridge

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// Compile-time check: *SoftwareBridge must satisfy store.AccountBridge.
var _ store.AccountBridge = (*SoftwareBridge)(nil)

var (
	ErrInvalidSeed      = errors.New("signer seed must be 32 hex encoded bytes")
	ErrInvalidSignature = errors.New("signature does not match the transaction")
	ErrMissingAccount   = errors.New("no account to sign for")
	ErrMissingRecipient = errors.New("transaction has no recipient")
)

// SoftwareBridge signs transactions with a local ed25519 key and submits them to
// a node over HTTP.
type SoftwareBridge struct {
	key        ed25519.PrivateKey
	nodeURL    *url.URL
	httpClient *http.Client
}

func NewSoftwareBridge(cfg models.BridgeConfig, httpClient *http.Client) (*SoftwareBridge, error) {
	key, err := signerKey(cfg.SignerSeed)
	if err != nil {
		return nil, err
	}

	raw := cfg.NodeURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	nodeURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid node url %q: %w", cfg.NodeURL, err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &SoftwareBridge{key: key, nodeURL: nodeURL, httpClient: httpClient}, nil
}

func signerKey(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("unable to generate signer key: %w", err)
		}
		zap.L().Warn("No signer seed configured, using an ephemeral key")
		return key, nil
	}

	raw, err := hex.DecodeString(seed)
	if err != nil || len(raw) != ed25519.SeedSize {
		return nil, ErrInvalidSeed
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

// PublicKey returns the hex encoded verification key
func (b *SoftwareBridge) PublicKey() string {
	return hex.EncodeToString(b.key.Public().(ed25519.PublicKey))
}

// Digest is the sha3-256 hash of the transaction's JSON encoding
func Digest(tx models.Transaction) ([]byte, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("unable to encode transaction: %w", err)
	}
	sum := sha3.Sum256(payload)
	return sum[:], nil
}

// SignOperation streams signature requested, signature granted and signed. The
// stream stops early when ctx is done.
func (b *SoftwareBridge) SignOperation(ctx context.Context, req store.SignRequest) (<-chan models.SignEvent, error) {
	if req.Account == nil {
		return nil, ErrMissingAccount
	}
	if req.Transaction.Recipient == "" {
		return nil, ErrMissingRecipient
	}

	events := make(chan models.SignEvent)
	go func() {
		defer close(events)

		send := func(event models.SignEvent) bool {
			select {
			case events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(models.SignEvent{Type: models.SignEventSignatureRequested}) {
			return
		}

		digest, err := Digest(req.Transaction)
		if err != nil {
			send(models.SignEvent{Err: err})
			return
		}

		if !send(models.SignEvent{Type: models.SignEventSignatureGranted}) {
			return
		}

		signed := &models.SignedOperation{
			OperationId: uuid.New().String(),
			AccountId:   req.Account.Id,
			Transaction: req.Transaction,
			Digest:      hex.EncodeToString(digest),
			Signature:   hex.EncodeToString(ed25519.Sign(b.key, digest)),
			PublicKey:   b.PublicKey(),
			SignedAt:    time.Now().UTC(),
		}

		fields := []zap.Field{
			zap.String("account_id", signed.AccountId),
			zap.String("operation_id", signed.OperationId),
			zap.String("device_id", req.DeviceId),
		}
		if sc := models.GetSwapContext(ctx); sc != nil {
			fields = append(fields, zap.String("swap_id", sc.SwapId))
		}
		zap.L().Info("Transaction signed", fields...)

		send(models.SignEvent{Type: models.SignEventSigned, SignedOperation: signed})
	}()

	return events, nil
}

// Verify checks that the signature covers the operation's transaction
func Verify(op models.SignedOperation) error {
	publicKey, err := hex.DecodeString(op.PublicKey)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return ErrInvalidSignature
	}
	signature, err := hex.DecodeString(op.Signature)
	if err != nil {
		return ErrInvalidSignature
	}

	digest, err := Digest(op.Transaction)
	if err != nil {
		return err
	}
	if hex.EncodeToString(digest) != op.Digest || !ed25519.Verify(publicKey, digest, signature) {
		return ErrInvalidSignature
	}
	return nil
}

type broadcastResponse struct {
	Hash string `json:"hash"`
}

// Broadcast submits a signed operation to the node and returns the confirmed operation
func (b *SoftwareBridge) Broadcast(ctx context.Context, req store.BroadcastRequest) (*models.Operation, error) {
	signed := req.SignedOperation
	if err := Verify(signed); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("unable to encode operation: %w", err)
	}

	u, err := b.nodeURL.Parse("operations")
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sc := models.GetSwapContext(ctx); sc != nil {
		httpReq.Header.Set("X-Swap-Id", sc.SwapId)
		httpReq.Header.Set("X-Swap-Provider", sc.Provider)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("node rejected operation %s: status %d: %s", signed.OperationId, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out broadcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unable to decode broadcast response: %w", err)
	}
	if out.Hash == "" {
		return nil, fmt.Errorf("node returned no hash for operation %s", signed.OperationId)
	}

	accountId := signed.AccountId
	if req.Account != nil {
		accountId = req.Account.Id
	}

	zap.L().Info("Operation broadcast",
		zap.String("operation_id", signed.OperationId),
		zap.String("hash", out.Hash))

	return &models.Operation{
		Id:        signed.OperationId,
		Hash:      out.Hash,
		AccountId: accountId,
		Recipient: signed.Transaction.Recipient,
		Amount:    signed.Transaction.Amount,
		Date:      time.Now().UTC(),
	}, nil
}
