package config

// BankConfig is the full configuration surface for the bank engine
// process: storage, cache/transport, the Lightning node connection,
// and the operator-tunable policy knobs the dispatcher reads at
// startup.
type BankConfig struct {
	Database struct {
		Host            string `toml:"host" env:"BANKENGINE_DB_HOST"`
		Port            string `toml:"port" env:"BANKENGINE_DB_PORT" env-default:"5432"`
		User            string `toml:"user" env:"BANKENGINE_DB_USER"`
		Password        string `toml:"password" env:"BANKENGINE_DB_PASSWORD"`
		DB              string `toml:"db" env:"BANKENGINE_DB_NAME"`
		SslMode         string `toml:"ssl_mode" env:"BANKENGINE_DB_SSL_MODE" env-default:"disable"`
		MaxConns        int    `toml:"max_conns" env:"BANKENGINE_DB_MAX_CONNS" env-default:"25"`
		MinConns        int    `toml:"min_conns" env:"BANKENGINE_DB_MIN_CONNS" env-default:"5"`
		MaxConnLifetime int    `toml:"max_conn_lifetime" env:"BANKENGINE_DB_MAX_CONN_LIFETIME" env-default:"5"`
		MaxConnIdleTime int    `toml:"max_conn_idle_time" env:"BANKENGINE_DB_MAX_CONN_IDLE_TIME" env-default:"1"`
	} `toml:"database"`

	Redis struct {
		Host     string `toml:"host" env:"BANKENGINE_REDIS_HOST"`
		Port     string `toml:"port" env:"BANKENGINE_REDIS_PORT" env-default:"6379"`
		Password string `toml:"password" env:"BANKENGINE_REDIS_PASSWORD"`
		DB       int    `toml:"db" env:"BANKENGINE_REDIS_DB" env-default:"0"`
	} `toml:"redis"`

	Lightning struct {
		GRPCHost              string `toml:"grpc_host" env:"BANKENGINE_LND_GRPC_HOST"`
		GRPCPort              string `toml:"grpc_port" env:"BANKENGINE_LND_GRPC_PORT" env-default:"10009"`
		TLSCertPath           string `toml:"tls_cert_path" env:"BANKENGINE_LND_TLS_CERT_PATH"`
		MacaroonPath          string `toml:"macaroon_path" env:"BANKENGINE_LND_MACAROON_PATH"`
		Network               string `toml:"network" env:"BANKENGINE_LND_NETWORK" env-default:"mainnet"`
		PaymentTimeoutSeconds int    `toml:"payment_timeout_seconds" env:"BANKENGINE_LND_PAYMENT_TIMEOUT_SECONDS" env-default:"30"`
		MaxPaymentFeeSats     int64  `toml:"max_payment_fee_sats" env:"BANKENGINE_LND_MAX_PAYMENT_FEE_SATS" env-default:"100"`
		// MacaroonEncryptionKeyHex, when set, is a hex-encoded 32-byte
		// AES-256 key; the macaroon file at MacaroonPath is then treated
		// as ciphertext rather than the raw macaroon.
		MacaroonEncryptionKeyHex string `toml:"macaroon_encryption_key_hex" env:"BANKENGINE_LND_MACAROON_KEY_HEX"`
	} `toml:"lightning"`

	RateLimit struct {
		DepositRequestLimit              uint64 `toml:"deposit_request_limit" env:"BANKENGINE_DEPOSIT_REQUEST_LIMIT" env-default:"5"`
		DepositReplenishmentIntervalMs   int64  `toml:"deposit_replenishment_interval_ms" env:"BANKENGINE_DEPOSIT_REPLENISHMENT_MS" env-default:"60000"`
		WithdrawalRequestLimit           uint64 `toml:"withdrawal_request_limit" env:"BANKENGINE_WITHDRAWAL_REQUEST_LIMIT" env-default:"5"`
		WithdrawalReplenishmentIntervalMs int64 `toml:"withdrawal_replenishment_interval_ms" env:"BANKENGINE_WITHDRAWAL_REPLENISHMENT_MS" env-default:"60000"`
	} `toml:"rate_limit"`

	DepositLimits struct {
		BTC float64 `toml:"btc" env:"BANKENGINE_DEPOSIT_LIMIT_BTC" env-default:"10"`
		USD float64 `toml:"usd" env:"BANKENGINE_DEPOSIT_LIMIT_USD" env-default:"100000"`
		EUR float64 `toml:"eur" env:"BANKENGINE_DEPOSIT_LIMIT_EUR" env-default:"100000"`
	} `toml:"deposit_limits"`

	WithdrawalOnly     bool    `toml:"withdrawal_only" env:"BANKENGINE_WITHDRAWAL_ONLY" env-default:"false"`
	LnNetworkFeeMargin float64 `toml:"ln_network_fee_margin" env:"BANKENGINE_LN_FEE_MARGIN" env-default:"1.5"`
}
