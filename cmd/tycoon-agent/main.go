// cmd/tycoon-agent/main.go runs turn orchestration for one or more games: it
// plays the autonomous seats, drives the local seat's commands, and serves
// the session status API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jason-s-yu/tycoon/internal/auth"
	"github.com/jason-s-yu/tycoon/internal/cache"
	"github.com/jason-s-yu/tycoon/internal/game"
	"github.com/jason-s-yu/tycoon/internal/handlers"
	"github.com/jason-s-yu/tycoon/internal/middleware"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	codes := splitList(os.Getenv("TYCOON_GAME_CODES"))
	if len(codes) == 0 {
		logger.Fatal("TYCOON_GAME_CODES is empty")
	}
	seats := parseSeats(logger, os.Getenv("TYCOON_AGENT_SEATS"))
	localID := getEnvInt("TYCOON_LOCAL_USER_ID", 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, err := loadSigner()
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	var recorder game.ActionRecorder
	if os.Getenv("REDIS_ADDR") != "" {
		rdb, err := cache.Connect(ctx)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		recorder = cache.NewPublisher(rdb, cache.QueueName())
	} else {
		logger.Warn("REDIS_ADDR unset, actions will not be archived")
	}

	reader := localID
	if reader == 0 {
		for id := range seats {
			reader = id
			break
		}
	}
	httpClient := &http.Client{
		Timeout:   15 * time.Second,
		Transport: &middleware.LogTransport{Logger: logrus.NewEntry(logger).WithField("component", "service")},
	}
	client := service.NewClient(getEnv("TYCOON_API_URL", "http://localhost:3000/api"),
		service.WithHTTPClient(httpClient), service.WithTokens(signer), service.WithReader(reader))

	rules := rulesFromEnv(logger)
	controls := func(p models.Player) bool {
		if len(seats) == 0 {
			return p.UserID != localID && p.IsAutonomous()
		}
		return seats[p.UserID]
	}

	store := game.NewSessionStore()
	hub := handlers.NewHub()
	pushURL := os.Getenv("TYCOON_WS_URL")

	var wg sync.WaitGroup
	for _, code := range codes {
		log := logger.WithField("game_code", code)
		o := game.New(game.Config{
			Code:        code,
			LocalUserID: localID,
			Controls:    controls,
			Service:     client,
			Rules:       rules,
			Recorder:    recorder,
			Notify:      hub.Sink(code, game.LogSink(log)),
			Logger:      logrus.NewEntry(logger),
		})
		if !store.Add(o) {
			log.Warn("duplicate game code, skipping")
			continue
		}
		var updates <-chan service.Update
		if pushURL != "" {
			updates = service.Subscribe(ctx, pushURL, code, log)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("session stopped")
			}
		}()
	}

	status := &handlers.StatusServer{Store: store, Hub: hub, Auth: signer, Logger: logger}
	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{Addr: addr, Handler: status.Routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("status API on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("status server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("terminating")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	wg.Wait()
}

// loadSigner uses the key pair the game service trusts when configured, and a
// throwaway pair otherwise.
func loadSigner() (*auth.Signer, error) {
	expire, err := auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return nil, err
	}
	priv, pub := os.Getenv("AGENT_KEY_PATH"), os.Getenv("AGENT_PUB_PATH")
	if priv != "" && pub != "" {
		return auth.NewSignerFromPath(priv, pub, expire)
	}
	return auth.NewSigner(expire)
}

func rulesFromEnv(logger *logrus.Logger) game.Rules {
	overrides := map[string]interface{}{}
	for key, env := range map[string]string{
		"turnTimerSec":    "TURN_TIMER_SEC",
		"inactivitySec":   "INACTIVITY_SEC",
		"pollIntervalSec": "POLL_INTERVAL_SEC",
		"minPollGapMs":    "MIN_POLL_GAP_MS",
		"tradePollSec":    "TRADE_POLL_SEC",
		"minWinTurns":     "MIN_WIN_TURNS",
		"jailFine":        "JAIL_FINE",
	} {
		if v := os.Getenv(env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", env, v, err)
				continue
			}
			overrides[key] = n
		}
	}
	if v := os.Getenv("REROLL_ON_TWELVE"); v != "" {
		overrides["rerollOnTwelve"] = v == "true" || v == "1"
	}
	rules, err := game.ParseRules(overrides, game.DefaultRules())
	if err != nil {
		logger.Warnf("rules: %v, using defaults", err)
		return game.DefaultRules()
	}
	return rules
}

// parseSeats reads a user_id:address:username list. Only the id decides
// which seats this agent plays; the rest is informational.
func parseSeats(logger *logrus.Logger, raw string) map[int]bool {
	seats := map[int]bool{}
	for _, s := range splitList(raw) {
		id, err := strconv.Atoi(strings.SplitN(s, ":", 2)[0])
		if err != nil {
			logger.Warnf("ignoring seat %q", s)
			continue
		}
		seats[id] = true
	}
	return seats
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
