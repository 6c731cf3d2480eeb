package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port             int
	GatewayPort      int
	DBDSN            string
	RedisURL         string
	JWTSecret        string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	AllowOrigins     []string

	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig

	Storage StorageConfig
	FaceRec FaceRecConfig
	LiveKit LiveKitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig descreve o bucket de fotos de referência (MinIO/S3).
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// FaceRecConfig aponta para o microsserviço de reconhecimento facial.
type FaceRecConfig struct {
	Endpoint            string
	ConfidenceThreshold float64
}

// LiveKitConfig guarda credenciais do SFU externo.
type LiveKitConfig struct {
	Host                string
	APIKey              string
	APISecret           string
	RecordingOutputPath string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	gatewayPort, err := parseIntEnv("GATEWAY_PORT", 8081)
	if err != nil {
		return nil, err
	}
	cfg.GatewayPort = gatewayPort

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	cfg.JWTRefreshSecret = strings.TrimSpace(getEnv("JWT_REFRESH_SECRET", ""))
	if len(cfg.JWTRefreshSecret) < 32 {
		return nil, errors.New("JWT_REFRESH_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Storage = StorageConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", "http://localhost:9000"),
		Region:    getEnv("MINIO_REGION", "us-east-1"),
		Bucket:    getEnv("MINIO_BUCKET", "portal-conselheiros"),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
	}

	threshold, err := parseFloatEnv("FACE_RECOGNITION_CONFIDENCE_THRESHOLD", 0.8)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 || threshold > 1 {
		return nil, errors.New("FACE_RECOGNITION_CONFIDENCE_THRESHOLD deve estar entre 0 e 1")
	}
	cfg.FaceRec = FaceRecConfig{
		Endpoint:            strings.TrimRight(getEnv("FACE_RECOGNITION_ENDPOINT", "http://localhost:8000"), "/"),
		ConfidenceThreshold: threshold,
	}

	cfg.LiveKit = LiveKitConfig{
		Host:                getEnv("LIVEKIT_HOST", "http://localhost:7880"),
		APIKey:              getEnv("LIVEKIT_API_KEY", ""),
		APISecret:           getEnv("LIVEKIT_API_SECRET", ""),
		RecordingOutputPath: getEnv("RECORDING_OUTPUT_PATH", "./recordings"),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " inválida")
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return f, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
