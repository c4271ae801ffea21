package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/onemorebsmith/kaspa-pool-monitor/src/aggregator"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/common"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/postgres"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/prom"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/rediscache"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/web"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const metricsRefreshInterval = 10 * time.Second

func main() {
	pwd, _ := os.Getwd()
	fullPath := path.Join(pwd, "config.yaml")
	log.Printf("loading config @ `%s`", fullPath)
	rawCfg, err := os.ReadFile(fullPath)
	if err != nil {
		log.Printf("config file not found: %s", err)
		os.Exit(1)
	}
	cfg := common.MonitorConfig{}
	if err := yaml.Unmarshal(rawCfg, &cfg); err != nil {
		log.Printf("failed parsing config file: %s", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ApiPort, "api", cfg.ApiPort, "port to serve the reporting api on, default `:9301`")
	flag.StringVar(&cfg.ConfigPort, "cfgport", cfg.ConfigPort, "port to receive pool config pushes on, default `:9302`")
	flag.StringVar(&cfg.PromPort, "prom", cfg.PromPort, "address to serve prom stats, default `:9300`")
	flag.StringVar(&cfg.HealthCheckPort, "hcp", cfg.HealthCheckPort, `(rarely used) if defined will expose a health check on /readyz, default ""`)
	flag.StringVar(&cfg.PostgresConfig, "pg", cfg.PostgresConfig, `config string for the postgres connection"`)
	flag.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, `address of the redis snapshot cache, blank disables caching"`)
	flag.StringVar(&cfg.PrometheusAddress, "prometheus", cfg.PrometheusAddress, `base url of the pool prometheus for hashrate queries"`)
	flag.StringVar(&cfg.PoolConfigPath, "poolcfg", cfg.PoolConfigPath, `file the pushed pool config is persisted to"`)

	flag.Parse()

	log.Println("----------------------------------")
	log.Printf("initializing monitor")
	log.Printf("\tapi:           %s", cfg.ApiPort)
	log.Printf("\tconfig port:   %s", cfg.ConfigPort)
	log.Printf("\tprom:          %s", cfg.PromPort)
	log.Printf("\thealth check:  %s", cfg.HealthCheckPort)
	log.Printf("\tredis:         %s", cfg.RedisAddress)
	log.Printf("\tprometheus:    %s", cfg.PrometheusAddress)
	log.Println("----------------------------------")

	postgres.ConfigurePostgres(cfg.PostgresConfig)
	logger := common.ConfigureZap(zap.InfoLevel)

	store := postgres.NewStore(logger)
	assembler := aggregator.NewAssembler(store, logger)

	var cache *rediscache.Cache
	if cfg.RedisAddress != "" {
		cache, err = rediscache.NewCache(cfg.RedisAddress, 60*time.Second, logger)
		if err != nil {
			logger.Fatal("failed connecting to redis", zap.Error(err))
		}
		defer cache.Close()
	}

	poolCfg := web.NewPoolConfigStore(cfg.PoolConfigPath)
	promQuery := prom.NewQueryClient(cfg.PrometheusAddress, logger)
	server := web.NewServer(assembler, cache, promQuery, poolCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.PromPort != "" {
		prom.StartPromServer(logger, cfg.PromPort)
	}
	if cfg.HealthCheckPort != "" {
		go beginReadyzHandler(cfg.HealthCheckPort)
	}

	go func() {
		if err := web.StartConfigServer(ctx, cfg.ConfigPort, poolCfg, logger); err != nil && err != http.ErrServerClosed {
			logger.Error("config server stopped", zap.Error(err))
		}
	}()
	go prom.StartRefreshLoop(ctx, assembler, metricsRefreshInterval, logger)

	if err := server.ListenAndServe(ctx, cfg.ApiPort); err != nil && err != http.ErrServerClosed {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}

func beginReadyzHandler(port string) {
	http.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pg, err := postgres.GetConnection(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		defer pg.Close(r.Context())
		if err := pg.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(errors.Wrap(err, "failed pinging postgres").Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	http.ListenAndServe(port, nil)
}
