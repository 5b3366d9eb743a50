// Package api exposes the storefront-facing HTTP endpoints: health, profile
// lookup and payment notification.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonkeeper/tongo/ton"

	"github.com/coconet/starshop/internal/profile"
	"github.com/coconet/starshop/internal/storage"
)

// ProfileLookup resolves a username to a public profile
type ProfileLookup interface {
	Lookup(ctx context.Context, username string) (*profile.Profile, error)
}

// AdminNotifier reports a new order to the admin chat. It is nil when the bot
// subsystem is disabled.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}

// Server handles incoming requests from the storefront
type Server struct {
	storage  *storage.Storage
	profiles ProfileLookup
	notifier AdminNotifier
	log      *slog.Logger

	server *http.Server
}

// NewServer creates a new API server
func NewServer(store *storage.Storage, profiles ProfileLookup, notifier AdminNotifier, log *slog.Logger) *Server {
	return &Server{
		storage:  store,
		profiles: profiles,
		notifier: notifier,
		log:      log,
	}
}

// Start starts the API server
func (s *Server) Start(ctx context.Context, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting api server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	return s.server.ListenAndServe()
}

// Handler returns the route handler; tests serve it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/get-user", s.handleGetUser)
	mux.HandleFunc("/notify-payment", s.handleNotifyPayment)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	botStatus := "ok"
	if s.notifier == nil {
		botStatus = "disabled"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "OK",
		"bot":    botStatus,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	username := profile.Normalize(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	p, err := s.profiles.Lookup(r.Context(), username)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			s.log.Error("profile lookup", "username", username, "error", err)
		}
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type notifyPaymentRequest struct {
	Username    string  `json:"username"`
	AmountStars int64   `json:"amountStars"`
	AmountTon   float64 `json:"amountTon"`
	Wallet      string  `json:"wallet"`
}

func (s *Server) handleNotifyPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req notifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if req.Username == "" || req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "username and wallet are required")
		return
	}
	if req.AmountStars < 1 {
		writeError(w, http.StatusBadRequest, "amountStars must be at least 1")
		return
	}
	if req.AmountTon < 0 {
		writeError(w, http.StatusBadRequest, "amountTon must not be negative")
		return
	}

	username := profile.Normalize(req.Username)
	wallet := friendlyWallet(req.Wallet)

	order, err := s.storage.CreateOrder(username, req.AmountStars, req.AmountTon, wallet)
	if err != nil {
		s.log.Error("create order", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record order")
		return
	}

	s.log.Info("order recorded",
		"order_id", order.ID,
		"username", username,
		"stars", req.AmountStars,
		"ton", req.AmountTon,
	)

	if s.notifier != nil {
		text := fmt.Sprintf(
			"🆕 <b>Новый заказ #%d</b>\n\n👤 @%s\n⭐ %d звёзд\n💎 %.4f TON\n💼 <code>%s</code>",
			order.ID, username, req.AmountStars, req.AmountTon, wallet,
		)
		if err := s.notifier.NotifyAdmin(r.Context(), text); err != nil {
			s.log.Error("notify admin about order", "order_id", order.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// friendlyWallet normalizes a TON address to its bounceable display form.
// Wallets are free-text snapshots, so anything unparseable is stored as sent.
func friendlyWallet(wallet string) string {
	acc, err := ton.ParseAccountID(wallet)
	if err != nil {
		return wallet
	}
	return acc.ToHuman(true, false)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
