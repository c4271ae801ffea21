package common

type MonitorConfig struct {
	ApiPort         string `yaml:"api_port"`
	ConfigPort      string `yaml:"config_port"`
	PromPort        string `yaml:"prom_port"`
	HealthCheckPort string `yaml:"health_check_port"`

	PostgresConfig    string `yaml:"postgres"`
	RedisAddress      string `yaml:"redis_address"`
	PrometheusAddress string `yaml:"prometheus_address"` // the pool's own prometheus, for hashrate queries
	PoolConfigPath    string `yaml:"pool_config_path"`   // where /postconfig payloads land
}
