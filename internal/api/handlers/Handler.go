package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"noisedash/internal/config"
	"noisedash/internal/utils"
)

func setHeader(w http.ResponseWriter, status int, responseData string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(responseData))
}

// respondData writes the success envelope expected by the dashboard client
func respondData(w http.ResponseWriter, status int, data any) {
	payload := map[string]any{
		"status": true,
		"data":   data,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		setHeader(w, http.StatusInternalServerError, `{"status":false, "error": "Failed to marshal response"}`)
		return
	}
	setHeader(w, status, string(jsonData))
}

// respondError maps the error taxonomy onto HTTP statuses: validation
// failures are client faults with their message intact, store failures are a
// generic server fault with details kept in the log only.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case utils.IsValidationError(err):
		writeErrorBody(w, http.StatusBadRequest, utils.GetErrorMessage(err))
	case utils.IsAuthError(err):
		writeErrorBody(w, http.StatusUnauthorized, "Unauthorized")
	default:
		writeErrorBody(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeErrorBody(w http.ResponseWriter, status int, message string) {
	payload := map[string]any{
		"status": false,
		"error":  message,
	}
	jsonData, _ := json.Marshal(payload)
	setHeader(w, status, string(jsonData))
}

func getCORSOrigins() string {
	return config.GetEnvConfig().CORSAllowedOrigins
}

func isOriginAllowed(origin string, allowedOrigins string) bool {
	if allowedOrigins == "*" {
		return true
	}

	origins := strings.Split(allowedOrigins, ",")
	for _, allowed := range origins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}
	return false
}

// CORSMiddleware applies the configured origin allow-list
func CORSMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := getCORSOrigins()

		if origin != "" && isOriginAllowed(origin, allowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if allowedOrigins == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func getTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// AuthMiddleware validates the dashboard bearer token when CHECK_TOKEN is
// enabled. With validation disabled it is a pass-through.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envConfig := config.GetEnvConfig()
		if !envConfig.ShouldCheckToken() {
			next(w, r)
			return
		}

		tokenStr := getTokenFromHeader(r)
		if tokenStr == "" {
			respondError(w, utils.NewAuthError("MISSING_TOKEN", "missing bearer token", utils.ErrMissingToken))
			return
		}
		if _, err := utils.ParseJWT(tokenStr, envConfig.JWTSecret); err != nil {
			respondError(w, err)
			return
		}

		next(w, r)
	}
}

// Rate limiting structures
type clientEntry struct {
	tokens     float64
	lastRefill time.Time
	mutex      sync.Mutex
}

var (
	rateLimitClients = make(map[string]*clientEntry)
	clientMutex      sync.RWMutex
)

// getClientKey extracts client identifier for rate limiting
func getClientKey(r *http.Request) string {
	// Try X-Forwarded-For first (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// Try X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// RateLimitMiddleware implements rate limiting using a token bucket per client
func RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envConfig := config.GetEnvConfig()
		if !envConfig.IsRateLimitEnabled() {
			next(w, r)
			return
		}

		clientKey := getClientKey(r)
		rps := envConfig.RateLimitRPS
		burst := envConfig.RateLimitBurst

		clientMutex.RLock()
		client, exists := rateLimitClients[clientKey]
		clientMutex.RUnlock()

		if !exists {
			client = &clientEntry{
				tokens:     float64(burst),
				lastRefill: utils.NowUTC(),
			}
			clientMutex.Lock()
			rateLimitClients[clientKey] = client
			clientMutex.Unlock()
		}

		client.mutex.Lock()
		defer client.mutex.Unlock()

		now := utils.NowUTC()
		elapsed := now.Sub(client.lastRefill).Seconds()

		// Refill tokens based on elapsed time
		client.tokens += elapsed * rps
		if client.tokens > float64(burst) {
			client.tokens = float64(burst)
		}
		client.lastRefill = now

		if client.tokens < 1 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Second).Unix(), 10))
			setHeader(w, http.StatusTooManyRequests, `{"status":false, "error": "Rate limit exceeded"}`)
			return
		}

		// Consume a token
		client.tokens--

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(client.tokens)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Second).Unix(), 10))

		next(w, r)
	}
}
