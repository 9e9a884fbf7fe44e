package qubicsdk

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/tickhelper"
	"github.com/qubickit/sdk-go/internal/txqueue"
)

// ClientConfig is the full set of construction-time knobs for New.
// Only BaseURL is required; everything else has a spec-mandated default.
type ClientConfig struct {
	BaseURL string

	HTTPClient *http.Client
	RPCTimeout time.Duration
	Hooks      rpcclient.Hooks
	Logger     *obslog.Logger

	DefaultTickOffset uint32
	TickGuardrails    tickhelper.Guardrails

	QueuePolicy txqueue.Policy

	DefaultConfirmTimeout      time.Duration
	DefaultConfirmPollInterval time.Duration
}

// Option mutates a ClientConfig at construction time.
type Option func(*ClientConfig)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ClientConfig) { c.HTTPClient = hc }
}

// WithRPCTimeout sets the per-request RPC timeout.
func WithRPCTimeout(d time.Duration) Option {
	return func(c *ClientConfig) { c.RPCTimeout = d }
}

// WithHooks installs RPC observability hooks (spec.md §4.A).
func WithHooks(h rpcclient.Hooks) Option {
	return func(c *ClientConfig) { c.Hooks = h }
}

// WithLogger attaches a structured logger to every internal component.
func WithLogger(l *obslog.Logger) Option {
	return func(c *ClientConfig) { c.Logger = l }
}

// WithDefaultTickOffset sets the tick offset used when a caller omits an
// explicit target tick (spec.md §4.B).
func WithDefaultTickOffset(offset uint32) Option {
	return func(c *ClientConfig) { c.DefaultTickOffset = offset }
}

// WithTickGuardrails overrides the min/max tick-offset guardrails.
func WithTickGuardrails(g tickhelper.Guardrails) Option {
	return func(c *ClientConfig) { c.TickGuardrails = g }
}

// WithQueuePolicy sets the process-wide default queue conflict policy
// (spec.md §4.E).
func WithQueuePolicy(p txqueue.Policy) Option {
	return func(c *ClientConfig) { c.QueuePolicy = p }
}

// WithDefaultConfirmTimeout sets the default sendAndConfirm timeout.
func WithDefaultConfirmTimeout(d time.Duration) Option {
	return func(c *ClientConfig) { c.DefaultConfirmTimeout = d }
}

// WithDefaultConfirmPollInterval sets the default sendAndConfirm poll
// interval.
func WithDefaultConfirmPollInterval(d time.Duration) Option {
	return func(c *ClientConfig) { c.DefaultConfirmPollInterval = d }
}

func defaultConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:                    baseURL,
		RPCTimeout:                 15 * time.Second,
		DefaultTickOffset:          5,
		TickGuardrails:             tickhelper.DefaultGuardrails,
		QueuePolicy:                txqueue.PolicyWaitForConfirm,
		DefaultConfirmTimeout:      60 * time.Second,
		DefaultConfirmPollInterval: time.Second,
	}
}

// LoadConfigFromEnv builds a ClientConfig from environment variables,
// loading a .env file first if one is present (the orbas1-Synnergy
// walletserver's godotenv.Load-then-os.Getenv config pattern). The
// recognized variables are:
//
//	QUBIC_RPC_URL               (required)
//	QUBIC_RPC_TIMEOUT_MS
//	QUBIC_TICK_OFFSET
//	QUBIC_TICK_GUARDRAILS_MIN
//	QUBIC_TICK_GUARDRAILS_MAX
//	QUBIC_QUEUE_POLICY           (waitForConfirm | reject | replaceHigherTick)
//	QUBIC_CONFIRM_TIMEOUT_MS
//	QUBIC_CONFIRM_POLL_INTERVAL_MS
func LoadConfigFromEnv() (ClientConfig, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("QUBIC_RPC_URL")
	if baseURL == "" {
		return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_RPC_URL is required")
	}

	cfg := defaultConfig(baseURL)

	if v := os.Getenv("QUBIC_RPC_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_RPC_TIMEOUT_MS: %w", err)
		}
		cfg.RPCTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("QUBIC_TICK_OFFSET"); v != "" {
		offset, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_TICK_OFFSET: %w", err)
		}
		cfg.DefaultTickOffset = uint32(offset)
	}
	if v := os.Getenv("QUBIC_TICK_GUARDRAILS_MIN"); v != "" {
		min, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_TICK_GUARDRAILS_MIN: %w", err)
		}
		cfg.TickGuardrails.MinOffset = uint32(min)
	}
	if v := os.Getenv("QUBIC_TICK_GUARDRAILS_MAX"); v != "" {
		max, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_TICK_GUARDRAILS_MAX: %w", err)
		}
		cfg.TickGuardrails.MaxOffset = uint32(max)
	}
	if v := os.Getenv("QUBIC_QUEUE_POLICY"); v != "" {
		cfg.QueuePolicy = txqueue.Policy(v)
	}
	if v := os.Getenv("QUBIC_CONFIRM_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_CONFIRM_TIMEOUT_MS: %w", err)
		}
		cfg.DefaultConfirmTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("QUBIC_CONFIRM_POLL_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("qubicsdk: QUBIC_CONFIRM_POLL_INTERVAL_MS: %w", err)
		}
		cfg.DefaultConfirmPollInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}
