package metrics

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// StartServer serves /metrics and /healthz on listenAddr in the background.
// The returned server is closed by the caller.
func StartServer(log log.Logger, listenAddr string, m *Metrics) *http.Server {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           NewMux(m),
		ReadTimeout:       time.Second * 10,
		ReadHeaderTimeout: time.Second * 10,
		WriteTimeout:      time.Second * 30,
		IdleTimeout:       time.Second * 60,
		MaxHeaderBytes:    10_000,
	}

	go func() {
		log.Info("starting metrics server", "addr", listenAddr)
		err := srv.ListenAndServe()
		if err == nil || err == http.ErrServerClosed {
			log.Info("closed metrics server")
		} else {
			log.Error("metrics server listen error", "err", err)
		}
	}()

	return srv
}

func NewMux(m *Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
