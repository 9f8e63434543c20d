// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full runtime configuration for every service binary.
// Values come from an optional YAML file (CONFIG_FILE) and can be
// overridden per key through environment variables.
type Config struct {
	Infra struct {
		Kafka struct {
			Brokers         []string `yaml:"brokers"`
			DebitTopic      string   `yaml:"debitTopic"`
			DeadLetterTopic string   `yaml:"deadLetterTopic"`
		} `yaml:"kafka"`
		Mysql struct {
			OrdersDSN    string `yaml:"ordersDsn"`
			InventoryDSN string `yaml:"inventoryDsn"`
		} `yaml:"mysql"`
		Redis struct {
			Enabled bool   `yaml:"enabled"`
			Addr    string `yaml:"addr"`
		} `yaml:"redis"`
		Zookeeper struct {
			Enabled bool     `yaml:"enabled"`
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Order struct {
		ProductServiceURL string   `yaml:"productServiceUrl"`
		LookupTimeout     Duration `yaml:"lookupTimeout"`
		PublishTimeout    Duration `yaml:"publishTimeout"`
		Resend            struct {
			Interval Duration `yaml:"interval"`
			Grace    Duration `yaml:"grace"`
			Batch    int      `yaml:"batch"`
		} `yaml:"resend"`
	} `yaml:"order"`

	Inventory struct {
		ConsumerGroup string   `yaml:"consumerGroup"`
		Workers       int      `yaml:"workers"`
		MaxAttempts   int      `yaml:"maxAttempts"`
		RetryBackoff  Duration `yaml:"retryBackoff"`
	} `yaml:"inventory"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// Init loads the configuration exactly once. Safe to call from every main.
func Init() {
	configOnce.Do(loadConfig)
}

// GetCurrentConfig returns the process configuration. Init must have run.
func GetCurrentConfig() Config {
	return currentConfig
}

func loadConfig() {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("FATAL: cannot read config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("FATAL: cannot parse config file %s: %v", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	currentConfig = cfg
}

func defaults() Config {
	var cfg Config
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.DebitTopic = "stock-debit-topic"
	cfg.Infra.Kafka.DeadLetterTopic = "stock-debit-topic-dlt"
	cfg.Infra.Mysql.OrdersDSN = "root:root@tcp(localhost:3306)/orders?charset=utf8mb4&parseTime=True&loc=UTC"
	cfg.Infra.Mysql.InventoryDSN = "root:root@tcp(localhost:3306)/inventory?charset=utf8mb4&parseTime=True&loc=UTC"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Order.ProductServiceURL = "http://localhost:8082"
	cfg.Order.LookupTimeout = Duration(2 * time.Second)
	cfg.Order.PublishTimeout = Duration(5 * time.Second)
	cfg.Order.Resend.Interval = Duration(30 * time.Second)
	cfg.Order.Resend.Grace = Duration(time.Minute)
	cfg.Order.Resend.Batch = 100
	cfg.Inventory.ConsumerGroup = "inventory-service"
	cfg.Inventory.Workers = 8
	cfg.Inventory.MaxAttempts = 5
	cfg.Inventory.RetryBackoff = Duration(2 * time.Second)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_DEBIT_TOPIC"); v != "" {
		cfg.Infra.Kafka.DebitTopic = v
	}
	if v := os.Getenv("KAFKA_DLT_TOPIC"); v != "" {
		cfg.Infra.Kafka.DeadLetterTopic = v
	}
	if v := os.Getenv("MYSQL_ORDERS_DSN"); v != "" {
		cfg.Infra.Mysql.OrdersDSN = v
	}
	if v := os.Getenv("MYSQL_INVENTORY_DSN"); v != "" {
		cfg.Infra.Mysql.InventoryDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
		cfg.Infra.Redis.Enabled = true
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
		cfg.Infra.Zookeeper.Enabled = true
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
		cfg.Infra.Nacos.Enabled = true
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
	if v := os.Getenv("PRODUCT_SERVICE_URL"); v != "" {
		cfg.Order.ProductServiceURL = v
	}
	if v := os.Getenv("CONSUMER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Inventory.Workers = n
		}
	}
	if v := os.Getenv("CONSUMER_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Inventory.MaxAttempts = n
		}
	}
}
