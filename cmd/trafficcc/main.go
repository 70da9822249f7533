package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trafficledger/config"
	"trafficledger/contract"
	"trafficledger/observability/logging"
)

const configPathEnv = "TRAFFICCC_CONFIG"

func main() {
	configPath := flag.String("config", os.Getenv(configPathEnv), "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Setup("trafficcc", cfg.Environment)

	if cfg.MetricsAddress != "" {
		go serveMetrics(log, cfg.MetricsAddress)
	}

	chaincode, err := contractapi.NewChaincode(contract.New(cfg, log))
	if err != nil {
		log.Error("create chaincode", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := chaincode.Start(); err != nil {
		log.Error("chaincode stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func serveMetrics(log *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", slog.String("error", err.Error()))
	}
}
