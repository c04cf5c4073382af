// Package lnd provides a gRPC client wrapper for interacting with an LND
// node. It abstracts the Lightning Network Daemon behind the bank.Driver
// interface so the dispatcher never depends on LND internals directly.
package lnd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"bankengine/internal/crypto"
	"bankengine/pkg/logger"
)

// Config holds the settings read from the bank config's [lightning]
// section: connection, network selection, and the payment policy
// ceilings the driver falls back on when LND exposes no direct probe.
type Config struct {
	// MacaroonEncryptionKey, when set, is the 32-byte AES-256 key used
	// to decrypt MacaroonPath's contents at rest; empty means the file
	// already holds the raw macaroon.
	MacaroonEncryptionKey []byte
	GRPCHost              string // "localhost" or the node's service name
	GRPCPort              string // 10009
	TLSCertPath           string // Path to LND's tls.cert
	MacaroonPath          string // Path to admin.macaroon (or custom-baked macaroon)
	Network               string // "mainnet", "testnet", "regtest"
	PaymentTimeoutSeconds int    // Max time for Lightning payment settlement (default: 30)
	MaxPaymentFeeSats     int64  // Max routing fee in sats (default: 100)
}

// LightningClient is the interface the dispatcher's bank.Driver adapter
// depends on, rather than on the concrete Client struct — this is what
// lets handler tests substitute a mock node.
type LightningClient interface {
	// PayInvoice pays a BOLT11 invoice and returns the payment result.
	PayInvoice(ctx context.Context, bolt11 string, maxFeeSats int64) (*PaymentResult, error)

	// DecodeInvoice decodes a BOLT11 invoice string without paying it.
	DecodeInvoice(ctx context.Context, bolt11 string) (*Invoice, error)

	// SendOnChain sends BTC from the LND wallet to a destination address.
	SendOnChain(ctx context.Context, address string, amountSats int64, targetConf int32) (*OnChainResult, error)

	// NewAddress generates a new on-chain Bitcoin address from LND's wallet.
	NewAddress(ctx context.Context) (string, error)

	// GetWalletBalance returns the on-chain wallet balance (confirmed + unconfirmed).
	GetWalletBalance(ctx context.Context) (*WalletBalance, error)

	// GetChannelBalance returns the total balance across all Lightning channels.
	GetChannelBalance(ctx context.Context) (*ChannelBalance, error)

	// GetInfo returns basic LND node information (alias, pubkey, synced status).
	GetInfo(ctx context.Context) (*NodeInfo, error)

	// Close closes the underlying gRPC connection.
	Close() error
}

type PaymentResultStatus int

const (
	Succeeded PaymentResultStatus = iota
	Failed
	InFlight
)

type PaymentResult struct {
	PaymentHash     string              // hex-encoded payment hash (32 bytes)
	PaymentPreimage string              // hex-encoded preimage (proof of payment)
	FeeSats         int64               // Routing fee paid in satoshis
	Status          PaymentResultStatus // Succeeded, Failed or InFlight
}

type Invoice struct {
	Destination string // Recipient node public key
	AmountSats  int64  // Invoice amount in satoshis (0 = any amount)
	PaymentHash string // Hex-encoded payment hash
	Expiry      int64  // Seconds until invoice expires
	Description string // Invoice description/memo
	IsExpired   bool   // true if invoice has expired
}

type OnChainResult struct {
	TxHash string // Hex-encoded transaction hash (64 chars)
}

type WalletBalance struct {
	ConfirmedSats   int64 // On-chain confirmed balance
	UnconfirmedSats int64 // On-chain unconfirmed (pending) balance
	TotalSats       int64 // Confirmed + Unconfirmed
}

type ChannelBalance struct {
	LocalSats  int64 // Our side of channels (spendable via Lightning)
	RemoteSats int64 // Remote side of channels (receivable capacity)
}

type NodeInfo struct {
	Alias         string
	PubKey        string
	SyncedToChain bool
	SyncedToGraph bool
	BlockHeight   uint32
	NumChannels   uint32
}

// macaroonCredential implements grpc.PerRPCCredentials. It attaches the
// hex-encoded macaroon as gRPC metadata on every RPC call, so LND can
// authenticate and authorize the request.
type macaroonCredential struct {
	macaroon string // hex-encoded serialized macaroon
}

// GetRequestMetadata is called by gRPC before each RPC. It returns the
// "macaroon" key with the hex-encoded value that LND expects.
func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroon}, nil
}

// RequireTransportSecurity returns true because macaroons are sensitive
// credentials that must only be sent over TLS-encrypted connections.
func (m macaroonCredential) RequireTransportSecurity() bool {
	return true
}

type Client struct {
	conn         *grpc.ClientConn       // gRPC connection (reused for all calls)
	lnClient     lnrpc.LightningClient  // Auto-generated gRPC stub
	routerClient routerrpc.RouterClient // Router sub-server client (SendPaymentV2)
	Cfg          Config                 // Connection & behavior config
}

func NewClient(cfg Config) (*Client, error) {
	// NewClientTLSFromFile reads the PEM cert file and builds TLS credentials.
	// First arg is the file path (not contents), second is the server name
	// override ("" = use the name from the cert).
	creds, err := credentials.NewClientTLSFromFile(cfg.TLSCertPath, "")
	if err != nil {
		return nil, fmt.Errorf("could not load tls cert from %s: %w", cfg.TLSCertPath, err)
	}

	fileMacaroonData, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read macaroon file %s: %w", cfg.MacaroonPath, err)
	}
	if len(cfg.MacaroonEncryptionKey) > 0 {
		plaintext, err := crypto.Decrypt(string(fileMacaroonData), cfg.MacaroonEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt macaroon at %s: %w", cfg.MacaroonPath, err)
		}
		fileMacaroonData = []byte(plaintext)
	}
	macaroonCreds := macaroonCredential{macaroon: hex.EncodeToString(fileMacaroonData)}

	url := cfg.GRPCHost + ":" + cfg.GRPCPort
	conn, err := grpc.NewClient(url, grpc.WithTransportCredentials(creds), grpc.WithPerRPCCredentials(macaroonCreds))
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", url, err)
	}

	lnClient := lnrpc.NewLightningClient(conn)

	// Validate connection by calling GetInfo — fails fast if LND is not
	// running, wallet is locked, or credentials are wrong.
	info, err := lnClient.GetInfo(context.Background(), &lnrpc.GetInfoRequest{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to LND (is it running? wallet unlocked?): %w", err)
	}

	logger.Info("lnd: connected",
		zap.String("alias", info.Alias), zap.String("pubkey", info.IdentityPubkey),
		zap.Uint32("height", info.BlockHeight),
		zap.Bool("synced_chain", info.SyncedToChain), zap.Bool("synced_graph", info.SyncedToGraph))

	if !info.SyncedToChain {
		logger.Warn("lnd: not synced to chain, payments may fail until sync completes")
	}

	return &Client{
		conn:         conn,
		lnClient:     lnClient,
		routerClient: routerrpc.NewRouterClient(conn),
		Cfg:          cfg,
	}, nil
}

// Close closes the underlying gRPC connection to LND.
func (c *Client) Close() error {
	return c.conn.Close()
}
