package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kaspanet/kaspad/util"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/aggregator"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/model"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/prom"
	"github.com/onemorebsmith/kaspa-pool-monitor/src/rediscache"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	poolPayoutsPerPage   = 500
	walletPayoutsPerPage = 10
	blockDetailsPerPage  = 100

	dayWindow     = 24 * time.Hour
	twoDayWindow  = 48 * time.Hour
	snapshotCache = 60 * time.Second
)

// Server is the reporting API, a thin shell over the snapshot assembler. All
// aggregation happens in src/aggregator; handlers only parse parameters,
// consult the cache and shape JSON.
type Server struct {
	assembler *aggregator.Assembler
	cache     *rediscache.Cache
	promQuery *prom.QueryClient
	poolCfg   *PoolConfigStore
	logger    *zap.Logger
}

func NewServer(assembler *aggregator.Assembler, cache *rediscache.Cache,
	promQuery *prom.QueryClient, poolCfg *PoolConfigStore, logger *zap.Logger) *Server {
	return &Server{
		assembler: assembler,
		cache:     cache,
		promQuery: promQuery,
		poolCfg:   poolCfg,
		logger:    logger.Named("web"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/balance", s.handleBalances)
	mux.HandleFunc("/balance/", s.handleBalanceByWallet)
	mux.HandleFunc("/total", s.handleTotals)
	mux.HandleFunc("/config", s.handlePoolConfig)
	mux.HandleFunc("/api/miningPoolStats", s.handlePoolStats)
	mux.HandleFunc("/api/pool/payouts", s.handlePayouts)
	mux.HandleFunc("/api/pool/payouts/", s.handlePayoutsByWallet)
	mux.HandleFunc("/api/pool/48hKASpayouts", s.handleKasPayouts48h)
	mux.HandleFunc("/api/pool/48hNACHOPayouts", s.handleNachoPayouts48h)
	mux.HandleFunc("/api/pool/24hTotalKASPayouts", s.handleKasTotal24h)
	mux.HandleFunc("/api/pool/totalPaidKAS", s.handleTotalPaidKas)
	mux.HandleFunc("/api/pool/totalPaidNACHO", s.handleTotalPaidNacho)
	mux.HandleFunc("/api/pool/blockdetails", s.handleBlockDetails)
	mux.HandleFunc("/api/pool/blockcount24h", s.handleBlockCount24h)

	return withRequestLogging(s.logger, cors.Default().Handler(mux))
}

func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	server := &http.Server{Addr: port, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("API server running at " + port)
	return server.ListenAndServe()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("request failed", zap.Int("statusCode", status), zap.String("message", message))
	s.writeJSON(w, status, map[string]any{
		"status":     "error",
		"statusCode": status,
		"message":    message,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func walletFromPath(r *http.Request, prefix string) (string, bool) {
	wallet := strings.TrimPrefix(r.URL.Path, prefix)
	if wallet == "" || strings.Contains(wallet, "/") {
		return "", false
	}
	if _, err := util.DecodeAddress(wallet, util.Bech32PrefixKaspa); err != nil {
		return "", false
	}
	return wallet, true
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.assembler.BalanceSnapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve balances")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"balance": balances})
}

func (s *Server) handleBalanceByWallet(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromPath(r, "/balance/")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	balances, err := s.assembler.WalletBalanceSnapshot(r.Context(), wallet)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve balances")
		return
	}
	if len(balances) == 0 {
		s.writeError(w, http.StatusNotFound, "No balance found for wallet: "+wallet)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"balance": balances})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.assembler.TotalsSnapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve totals")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"total": totals})
}

func (s *Server) handlePoolConfig(w http.ResponseWriter, r *http.Request) {
	raw := s.poolCfg.Raw()
	if raw == nil {
		s.writeError(w, http.StatusNotFound, "Config file not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) handlePayouts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", poolPayoutsPerPage)
	payouts, err := s.assembler.CombinedPayouts(r.Context(), page, perPage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve payouts")
		return
	}
	s.writeJSON(w, http.StatusOK, payouts)
}

func (s *Server) handlePayoutsByWallet(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromPath(r, "/api/pool/payouts/")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", walletPayoutsPerPage)
	payouts, err := s.assembler.CombinedPayoutsByWallet(r.Context(), wallet, page, perPage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve payouts")
		return
	}
	s.writeJSON(w, http.StatusOK, payouts)
}

func (s *Server) handleKasPayouts48h(w http.ResponseWriter, r *http.Request) {
	grouped, err := s.assembler.PayoutsGroupedLast(r.Context(), model.PaymentKindKas, twoDayWindow)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve 48H KAS payments")
		return
	}
	s.writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleNachoPayouts48h(w http.ResponseWriter, r *http.Request) {
	grouped, err := s.assembler.PayoutsGroupedLast(r.Context(), model.PaymentKindNacho, twoDayWindow)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve 48h NACHO payouts")
		return
	}
	formatted := map[string]decimal.Decimal{}
	for _, entry := range grouped {
		formatted[entry.Wallet] = entry.Amount
	}
	s.writeJSON(w, http.StatusOK, formatted)
}

func (s *Server) handleKasTotal24h(w http.ResponseWriter, r *http.Request) {
	total, err := s.assembler.TotalPaidLast(r.Context(), model.PaymentKindKas, dayWindow)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve 24H KAS total")
		return
	}
	s.writeJSON(w, http.StatusOK, total)
}

func (s *Server) handleTotalPaidKas(w http.ResponseWriter, r *http.Request) {
	total, err := s.assembler.TotalPaid(r.Context(), model.PaymentKindKas, r.URL.Query().Get("wallet"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve total paid KAS")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"totalPaidKAS": total})
}

func (s *Server) handleTotalPaidNacho(w http.ResponseWriter, r *http.Request) {
	total, err := s.assembler.TotalPaid(r.Context(), model.PaymentKindNacho, r.URL.Query().Get("wallet"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve total paid NACHO")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"totalPaidNACHO": total})
}

func (s *Server) handleBlockDetails(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "currentPage", 1)
	perPage := queryInt(r, "perPage", blockDetailsPerPage)

	cacheKey := "blockdetails:" + strconv.Itoa(page) + ":" + strconv.Itoa(perPage)
	cached := model.Page[model.BlockDetail]{}
	if s.cache.GetJSON(r.Context(), cacheKey, &cached) {
		s.writeJSON(w, http.StatusOK, cached)
		return
	}

	details, err := s.assembler.BlockDetails(r.Context(), page, perPage)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve block details")
		return
	}
	s.cache.PutJSON(r.Context(), cacheKey, details)
	s.writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleBlockCount24h(w http.ResponseWriter, r *http.Request) {
	count, err := s.assembler.BlockCountLast(r.Context(), dayWindow)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve 24h block count")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"blockCount24h": count})
}
