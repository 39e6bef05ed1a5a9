package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	AWS       AWSConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Secrets   SecretsConfig
	Amount    AmountConfig
	Deferred  DeferredConfig
	CVV       CVVConfig
	Failover  FailoverConfig
	Audit     AuditConfig
	Messages  MessagesConfig
	Processor ProcessorConfig
	Logger    LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int
	RateLimitRPS    float64 // Requests per second per client, 0 disables
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// AWSConfig holds AWS resource names
type AWSConfig struct {
	Region                string
	Endpoint              string // Optional endpoint override (localstack)
	TransactionTable      string
	TicketNumberIndex     string
	TokenTable            string
	MerchantTable         string
	ProcessorTable        string
	BinTable              string
	ChargeMetadataTable   string
	FailedChargeTable     string
	KushkiAcqFunction     string
	RuleEngineFunction    string
	BinCorrectionRPS      float64
	BinCorrectionBurst    int
	BinCorrectionDisabled bool
}

// RedisConfig holds the bin-info cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Enabled  bool
}

// KafkaConfig holds the subscription-attempt publisher configuration
type KafkaConfig struct {
	Brokers      []string
	AttemptTopic string
	ClientID     string
	Enabled      bool
}

// SecretsConfig selects where the acquirer encryption key is read from
type SecretsConfig struct {
	Backend       string // aws, vault or local
	EncryptionKey string // Secret path of the PEM public key
	VaultAddr     string
	VaultToken    string
	VaultRoleID   string // AppRole login when set, token otherwise
	VaultSecretID string
	VaultMount    string
	VaultKV       int // KV engine version, 1 or 2
	CacheTTL      time.Duration
	LocalBasePath string
}

// AmountConfig drives amount normalization
type AmountConfig struct {
	IVARates         map[string]decimal.Decimal // Currency -> IVA rate, e.g. USD:0.15
	ExemptProcessors []string                   // Processors using the closed-form tax reallocation
}

// DeferredConfig drives deferred-payment field resolution
type DeferredConfig struct {
	ExemptCurrencies     []string
	NoInterestCreditType string
}

// CVVConfig drives default CVV injection
type CVVConfig struct {
	ForceProcessor              string
	AvoidSubscriptionValidation bool
	AvoidScheduled              bool
	AvoidOnDemand               bool
	AvoidBrands                 []string // Empty means the avoid flags apply to every brand
}

// FailoverConfig drives single-hop failover re-routing
type FailoverConfig struct {
	MinRemaining time.Duration
	Processors   map[string]string // Processor name -> failover processor id
}

// AuditConfig drives the approved-vs-requested amount audit
type AuditConfig struct {
	AmountThreshold decimal.Decimal
	ExemptMerchants []string
}

// MessagesConfig holds caller-visible texts that vary per deployment
type MessagesConfig struct {
	OTPSecureMessage     string
	ThreeDSKushkiMessage string
	ThreeDSMerchantMsg   string
	UnreachableMessage   string
}

// ProcessorConfig holds the HTTP acquirer endpoints
type ProcessorConfig struct {
	AurusURL     string
	TransbankURL string
	Timeout      time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	ivaRates, err := parseRates(getEnv("IVA_RATES", "USD:0.15,COP:0.19,CLP:0.19,PEN:0.18,MXN:0.16,CRC:0.13,GTQ:0.12,HNL:0.15,NIO:0.15,PAB:0.07"))
	if err != nil {
		return nil, fmt.Errorf("invalid IVA_RATES: %w", err)
	}

	threshold, err := decimal.NewFromString(getEnv("AUDIT_AMOUNT_THRESHOLD", "0.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_AMOUNT_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 50),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 100),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		AWS: AWSConfig{
			Region:                getEnv("AWS_REGION", "us-east-1"),
			Endpoint:              getEnv("AWS_ENDPOINT", ""),
			TransactionTable:      getEnv("DYNAMO_TRANSACTION", ""),
			TicketNumberIndex:     getEnv("DYNAMO_TICKET_NUMBER_INDEX", "ticketNumberIndex"),
			TokenTable:            getEnv("DYNAMO_TOKENS", ""),
			MerchantTable:         getEnv("DYNAMO_MERCHANT", ""),
			ProcessorTable:        getEnv("DYNAMO_PROCESSOR", ""),
			BinTable:              getEnv("DYNAMO_BIN", ""),
			ChargeMetadataTable:   getEnv("DYNAMO_CHARGES", ""),
			FailedChargeTable:     getEnv("DYNAMO_FAILED_CHARGES", ""),
			KushkiAcqFunction:     getEnv("LAMBDA_KUSHKI_ACQ", ""),
			RuleEngineFunction:    getEnv("LAMBDA_RULE_ENGINE", ""),
			BinCorrectionRPS:      getEnvAsFloat("BIN_CORRECTION_RPS", 5),
			BinCorrectionBurst:    getEnvAsInt("BIN_CORRECTION_BURST", 10),
			BinCorrectionDisabled: getEnvAsBool("BIN_CORRECTION_DISABLED", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("BIN_CACHE_TTL", 24*time.Hour),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			AttemptTopic: getEnv("KAFKA_ATTEMPT_TOPIC", "subscription-attempts"),
			ClientID:     getEnv("KAFKA_CLIENT_ID", "card-gateway"),
			Enabled:      getEnvAsBool("KAFKA_ENABLED", true),
		},
		Secrets: SecretsConfig{
			Backend:       getEnv("SECRET_BACKEND", "aws"),
			EncryptionKey: getEnv("AURUS_ENCRYPTION_KEY_PATH", "card-gateway/aurus/public-key"),
			VaultAddr:     getEnv("VAULT_ADDR", "http://localhost:8200"),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
			VaultRoleID:   getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID: getEnv("VAULT_SECRET_ID", ""),
			VaultMount:    getEnv("VAULT_MOUNT", "secret"),
			VaultKV:       getEnvAsInt("VAULT_KV_VERSION", 2),
			CacheTTL:      getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
			LocalBasePath: getEnv("LOCAL_SECRETS_BASE_PATH", "./secrets"),
		},
		Amount: AmountConfig{
			IVARates:         ivaRates,
			ExemptProcessors: getEnvAsList("AMOUNT_EXEMPT_PROCESSORS", nil),
		},
		Deferred: DeferredConfig{
			ExemptCurrencies:     getEnvAsList("DEFERRED_EXEMPT_CURRENCIES", []string{"CLP"}),
			NoInterestCreditType: getEnv("DEFERRED_NO_INTEREST_CREDIT_TYPE", "01"),
		},
		CVV: CVVConfig{
			ForceProcessor:              getEnv("CVV_FORCE_PROCESSOR", "Kushki Acquirer Processor"),
			AvoidSubscriptionValidation: getEnvAsBool("CVV_AVOID_SUBSCRIPTION_VALIDATION", true),
			AvoidScheduled:              getEnvAsBool("CVV_AVOID_SCHEDULED", false),
			AvoidOnDemand:               getEnvAsBool("CVV_AVOID_ON_DEMAND", false),
			AvoidBrands:                 getEnvAsList("CVV_AVOID_BRANDS", nil),
		},
		Failover: FailoverConfig{
			MinRemaining: getEnvAsDuration("FAILOVER_MIN_REMAINING", 10*time.Second),
			Processors:   getEnvAsMap("FAILOVER_PROCESSORS"),
		},
		Audit: AuditConfig{
			AmountThreshold: threshold,
			ExemptMerchants: getEnvAsList("AUDIT_EXEMPT_MERCHANTS", nil),
		},
		Messages: MessagesConfig{
			OTPSecureMessage:     getEnv("OTP_SECURE_MESSAGE", "Transacción rechazada por validación OTP."),
			ThreeDSKushkiMessage: getEnv("THREEDS_KUSHKI_MESSAGE", "3DS completado exitosamente"),
			ThreeDSMerchantMsg:   getEnv("THREEDS_MERCHANT_MESSAGE", "3DS externo completado exitosamente"),
			UnreachableMessage:   getEnv("UNREACHABLE_MESSAGE", "Procesador inalcanzable"),
		},
		Processor: ProcessorConfig{
			AurusURL:     getEnv("AURUS_URL", ""),
			TransbankURL: getEnv("TRANSBANK_URL", ""),
			Timeout:      getEnvAsDuration("PROCESSOR_TIMEOUT", 27*time.Second),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.AWS.TransactionTable == "" {
		return nil, fmt.Errorf("DYNAMO_TRANSACTION is required")
	}
	if cfg.AWS.KushkiAcqFunction == "" {
		return nil, fmt.Errorf("LAMBDA_KUSHKI_ACQ is required")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED")
	}

	return cfg, nil
}

// IVARate returns the configured IVA rate for a currency
func (c *AmountConfig) IVARate(currency string) (decimal.Decimal, bool) {
	rate, ok := c.IVARates[strings.ToUpper(currency)]
	return rate, ok
}

// IsExemptProcessor reports processors using the closed-form tax reallocation
func (c *AmountConfig) IsExemptProcessor(processorID string) bool {
	return contains(c.ExemptProcessors, processorID)
}

// IsExemptCurrency reports currencies that never carry deferred fields
func (c *DeferredConfig) IsExemptCurrency(currency string) bool {
	for _, cur := range c.ExemptCurrencies {
		if strings.EqualFold(cur, currency) {
			return true
		}
	}
	return false
}

// IsExemptMerchant reports merchants skipped by the amount audit
func (c *AuditConfig) IsExemptMerchant(merchantID string) bool {
	return contains(c.ExemptMerchants, merchantID)
}

// Helper functions

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// parseRates parses "CUR:rate,CUR:rate" lists
func parseRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range splitList(raw) {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed rate %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed rate %q: %w", pair, err)
		}
		rates[strings.ToUpper(strings.TrimSpace(parts[0]))] = rate
	}
	return rates, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return splitList(valueStr)
}

// getEnvAsMap parses "key=value;key=value" pairs. Keys may contain spaces.
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ";") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out
}
