package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	HTTPPort        string
	SessionCacheTTL time.Duration
	TagCacheTTL     time.Duration
	RoomIdleTTL     time.Duration
	JanitorInterval time.Duration
	TaggerFeatures  int
}

func Load() *Config {
	return &Config{
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "classpulse"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:        getEnv("PORT", "8080"),
		SessionCacheTTL: getDuration("SESSION_CACHE_TTL", 24*time.Hour),
		TagCacheTTL:     getDuration("TAG_CACHE_TTL", 5*time.Minute),
		RoomIdleTTL:     getDuration("ROOM_IDLE_TTL", 4*time.Hour),
		JanitorInterval: getDuration("JANITOR_INTERVAL", 10*time.Minute),
		TaggerFeatures:  getInt("TAGGER_FEATURES", 1024),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
