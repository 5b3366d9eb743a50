package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken     string
	AdminChatID  int64
	ModeratorIDs map[int64]bool

	// HTTP API
	Port int

	// Database
	DBPath string

	// Storefront
	WebAppURL string

	// Broadcast
	BroadcastDelay time.Duration

	// Pricing (flat estimates for the admin panel)
	StarBuyPriceTON  float64
	StarSellPriceTON float64
	GasPerOrderTON   float64
	TonUSDFallback   float64

	// External services
	RatesBaseURL   string
	ProfileBaseURL string
}

func Load() *Config {
	cfg := &Config{
		// Telegram
		BotToken:    getEnv("BOT_TOKEN", ""),
		AdminChatID: getEnvInt64("ADMIN_CHAT_ID", 0),

		// HTTP API
		Port: getEnvInt("PORT", 3000),

		// Database
		DBPath: getEnv("DB_PATH", "./starshop.db"),

		// Storefront
		WebAppURL: getEnv("WEBAPP_URL", "https://web-production-03b2.up.railway.app"),

		// Broadcast
		BroadcastDelay: getEnvDuration("BROADCAST_DELAY_MS", 50*time.Millisecond),

		// Pricing
		StarBuyPriceTON:  getEnvFloat("STAR_BUY_PRICE_TON", 0.004),
		StarSellPriceTON: getEnvFloat("STAR_SELL_PRICE_TON", 0.005),
		GasPerOrderTON:   getEnvFloat("GAS_PER_ORDER_TON", 0.05),
		TonUSDFallback:   getEnvFloat("TON_USD_FALLBACK", 6.5),

		// External services
		RatesBaseURL:   strings.TrimSuffix(getEnv("RATES_BASE_URL", "https://api.coingecko.com/api/v3"), "/"),
		ProfileBaseURL: strings.TrimSuffix(getEnv("PROFILE_BASE_URL", "https://t.me"), "/"),
	}

	// Parse moderator chat IDs
	cfg.ModeratorIDs = make(map[int64]bool)
	modIDs := getEnv("MODERATOR_CHAT_IDS", "")
	for _, idStr := range strings.Split(modIDs, ",") {
		idStr = strings.TrimSpace(idStr)
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			cfg.ModeratorIDs[id] = true
		}
	}

	return cfg
}

// BotEnabled reports whether the bot subsystem can start. The HTTP facade
// runs either way.
func (c *Config) BotEnabled() bool {
	return c.BotToken != "" && c.AdminChatID != 0
}

// IsAdmin reports whether chatID is the configured admin.
func (c *Config) IsAdmin(chatID int64) bool {
	return c.AdminChatID != 0 && chatID == c.AdminChatID
}

// IsModerator reports whether chatID is a configured moderator.
func (c *Config) IsModerator(chatID int64) bool {
	return c.ModeratorIDs[chatID]
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
