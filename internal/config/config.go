package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Gateway struct {
		RPCEndpoints      []string `yaml:"rpc_endpoints"`
		WSEndpoints       []string `yaml:"ws_endpoints"`
		Rune              string   `yaml:"rune"`
		TimeoutSeconds    int      `yaml:"timeout_seconds"`
		FailoverThreshold int      `yaml:"failover_threshold"`
	} `yaml:"gateway"`
	Orders struct {
		InvoiceExpirySeconds int    `yaml:"invoice_expiry_seconds"`
		DescriptionPrefix    string `yaml:"description_prefix"`
	} `yaml:"orders"`
	Worker struct {
		IntervalSeconds     int64 `yaml:"interval_seconds"`
		WSFailoverThreshold int   `yaml:"ws_failover_threshold"`
	} `yaml:"worker"`
	Provision struct {
		LXDEndpoint string `yaml:"lxd_endpoint"`
		LXDPassword string `yaml:"lxd_password"`
		ScriptPath  string `yaml:"script_path"`
	} `yaml:"provision"`
	Service struct {
		Version string `yaml:"version"`
	} `yaml:"service"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if len(cfg.Gateway.RPCEndpoints) == 0 {
		return nil, errors.New("gateway.rpc_endpoints is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Orders.InvoiceExpirySeconds <= 0 {
		cfg.Orders.InvoiceExpirySeconds = 300
	}
	if cfg.Orders.DescriptionPrefix == "" {
		cfg.Orders.DescriptionPrefix = "lnplay.live"
	}
	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = 10
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 20
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = "v0.0.1"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("GATEWAY_RPC_ENDPOINTS"); v != "" {
		cfg.Gateway.RPCEndpoints = splitCommaList(v)
	}
	if v := os.Getenv("GATEWAY_WS_ENDPOINTS"); v != "" {
		cfg.Gateway.WSEndpoints = splitCommaList(v)
	}
	if v := os.Getenv("GATEWAY_RUNE"); v != "" {
		cfg.Gateway.Rune = v
	}
	if v := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); v != "" {
		cfg.Gateway.TimeoutSeconds = atoiOr(cfg.Gateway.TimeoutSeconds, v)
	}
	if v := os.Getenv("GATEWAY_FAILOVER_THRESHOLD"); v != "" {
		cfg.Gateway.FailoverThreshold = atoiOr(cfg.Gateway.FailoverThreshold, v)
	}
	if v := os.Getenv("INVOICE_EXPIRY_SECONDS"); v != "" {
		cfg.Orders.InvoiceExpirySeconds = atoiOr(cfg.Orders.InvoiceExpirySeconds, v)
	}
	if v := os.Getenv("ORDER_DESCRIPTION_PREFIX"); v != "" {
		cfg.Orders.DescriptionPrefix = v
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_WS_FAILOVER_THRESHOLD"); v != "" {
		cfg.Worker.WSFailoverThreshold = atoiOr(cfg.Worker.WSFailoverThreshold, v)
	}
	if v := os.Getenv("LNPLAY_LXD_FQDN_PORT"); v != "" {
		cfg.Provision.LXDEndpoint = v
	}
	if v := os.Getenv("LNPLAY_LXD_PASSWORD"); v != "" {
		cfg.Provision.LXDPassword = v
	}
	if v := os.Getenv("PROVISION_SCRIPT_PATH"); v != "" {
		cfg.Provision.ScriptPath = v
	}
	if v := os.Getenv("SERVICE_VERSION"); v != "" {
		cfg.Service.Version = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
