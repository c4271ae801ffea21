package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StartConfigServer listens for the pool pushing its configuration. Kept off
// the public API port; only the pool's own network should reach it.
func StartConfigServer(ctx context.Context, port string, store *PoolConfigStore, logger *zap.Logger) error {
	logger = logger.Named("configserver")
	mux := http.NewServeMux()
	mux.HandleFunc("/postconfig", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		payload := struct {
			Config json.RawMessage `json:"config"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Config) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid config data."))
			return
		}
		if err := store.Save(payload.Config); err != nil {
			logger.Error("failed saving pushed config", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Failed to save config."))
			return
		}
		logger.Info("pool config received and saved")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Config received and saved."))
	})

	server := &http.Server{Addr: port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	logger.Info("config server running at " + port)
	return server.ListenAndServe()
}
