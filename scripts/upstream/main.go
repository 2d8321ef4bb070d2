// upstream is a stand-in for the services the proxy talks to, for local
// testing. One process serves a fraud-score API, a lead-delivery API and a
// data queue.
//
// Usage:
//
//	go run ./scripts/upstream -port 8081 -fail-rate 0.2
//
// Endpoints:
//
//	POST /phone/{key}/{phone}  fraud-score lookup
//	POST /submit               lead delivery
//	PUT  /{table}/             data queue
//	POST /slack                incoming webhook
//	HEAD /                     connectivity probe
//
// The breaker keys on the host name, so point the proxy at two different
// names for the same process, e.g. 127.0.0.1 for fraud score and localhost
// for lead delivery.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fraudScoreResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequestID   string `json:"request_id"`
	Valid       bool   `json:"valid"`
	FraudScore  int    `json:"fraud_score"`
	RecentAbuse bool   `json:"recent_abuse"`
	Risky       bool   `json:"risky"`
	DoNotCall   bool   `json:"do_not_call"`
	Leaked      bool   `json:"leaked"`
	Spammer     bool   `json:"spammer"`
	Active      bool   `json:"active"`
}

type leadResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Lead    struct {
		ID string `json:"id"`
	} `json:"lead"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	failRate := flag.Float64("fail-rate", 0, "share of lookups answered with 500")
	flag.Parse()

	var served, failed atomic.Int64

	fail := func(w http.ResponseWriter) bool {
		served.Add(1)
		if rand.Float64() >= *failRate {
			return false
		}
		failed.Add(1)
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return true
	}

	r := chi.NewRouter()

	r.Post("/phone/{key}/{phone}", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("fraud-score: phone=%s campaign=%s", chi.URLParam(r, "phone"), r.URL.Query().Get("promoCampaign"))
		if fail(w) {
			return
		}
		score := rand.IntN(100)
		writeJSON(w, fraudScoreResponse{
			Success:     true,
			Message:     "Success.",
			RequestID:   uuid.NewString(),
			Valid:       true,
			FraudScore:  score,
			RecentAbuse: score > 95,
			Risky:       score > 85,
			Active:      true,
		})
	})

	r.Post("/submit", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.Printf("lead-delivery: body=%s", body)
		if fail(w) {
			return
		}
		var resp leadResponse
		resp.Outcome = "success"
		resp.Lead.ID = uuid.NewString()
		writeJSON(w, resp)
	})

	r.Put("/{table}/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.Printf("data-queue: table=%s auth=%t bytes=%d", chi.URLParam(r, "table"), r.Header.Get("AuthKey") != "", len(body))
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/slack", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.Printf("slack: %s", body)
		_, _ = w.Write([]byte("ok"))
	})

	r.Head("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"served": served.Load(), "failed": failed.Load()})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting fake upstream on %s (fail rate %.2f)", addr, *failRate)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
