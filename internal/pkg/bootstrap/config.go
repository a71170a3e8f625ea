package bootstrap

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a yaml file with
// environment overrides for the values that differ per deployment.
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	Infra struct {
		MysqlDSN     string   `yaml:"mysql_dsn"`
		RedisAddr    string   `yaml:"redis_addr"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		ZkServers    []string `yaml:"zk_servers"`
		Jaeger       struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Addrs     string `yaml:"addrs"`
			Namespace string `yaml:"namespace"`
			Group     string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Gateways struct {
		// Static endpoints, used when nacos discovery is not enabled.
		StockURL     string   `yaml:"stock_url"`
		LogisticsURL string   `yaml:"logistics_url"`
		CallTimeout  Duration `yaml:"call_timeout"`
		TrackingTTL  Duration `yaml:"tracking_ttl"`
	} `yaml:"gateways"`
}

// Duration lets yaml carry durations in the usual "8s" notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig reads the yaml config at path (CONFIG_PATH overrides),
// then applies environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		path = env
	}

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// run on env overrides and defaults alone
		case err != nil:
			return nil, errors.Wrapf(err, "reading config %s", path)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing config %s", path)
			}
		}
	}

	cfg.Service.Name = getEnv("SERVICE_NAME", defaultStr(cfg.Service.Name, "order-service"))
	cfg.Infra.MysqlDSN = getEnv("MYSQL_DSN", defaultStr(cfg.Infra.MysqlDSN, "shopcart:shopcart@tcp(localhost:3306)/shopcart?parseTime=true"))
	cfg.Infra.RedisAddr = getEnv("REDIS_ADDR", defaultStr(cfg.Infra.RedisAddr, "localhost:6379"))
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Infra.KafkaBrokers = splitCSV(brokers)
	}
	if len(cfg.Infra.KafkaBrokers) == 0 {
		cfg.Infra.KafkaBrokers = []string{"localhost:9092"}
	}
	if servers := os.Getenv("ZK_SERVERS"); servers != "" {
		cfg.Infra.ZkServers = splitCSV(servers)
	}
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", defaultStr(cfg.Infra.Jaeger.Endpoint, "http://localhost:14268/api/traces"))
	cfg.Infra.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.Addrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", defaultStr(cfg.Infra.Nacos.Group, "DEFAULT_GROUP"))

	cfg.Gateways.StockURL = getEnv("STOCK_API_BASE_URL", defaultStr(cfg.Gateways.StockURL, "http://localhost:8001/api"))
	cfg.Gateways.LogisticsURL = getEnv("LOGISTICS_API_BASE_URL", defaultStr(cfg.Gateways.LogisticsURL, "http://localhost:8002/api"))
	if cfg.Gateways.CallTimeout <= 0 {
		cfg.Gateways.CallTimeout = Duration(8 * time.Second)
	}
	if cfg.Gateways.TrackingTTL <= 0 {
		cfg.Gateways.TrackingTTL = Duration(30 * time.Second)
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 8080
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func defaultStr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
