// Package web provides an HTTP server with routing and middleware.
// It uses Gin framework for high-performance web handling.
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// Options configure the server middleware
type Options struct {
	// WebhookURL receives an embed per request when set
	WebhookURL string
	// AllowedHosts is a regular expression matched against the Host header.
	// Empty allows every host.
	AllowedHosts string
	// CORSOrigins lists the dashboard origins. Empty allows any origin.
	CORSOrigins []string
	// RateLimit is the sustained requests per second allowed per IP
	RateLimit rate.Limit
	// RateBurst is the burst allowed per IP
	RateBurst int
}

// DefaultOptions returns 100 requests per minute per IP with any host allowed
func DefaultOptions() Options {
	return Options{
		RateLimit: rate.Every(time.Minute / 100),
		RateBurst: 100,
	}
}

// Server represents the web server
type Server struct {
	engine           *gin.Engine
	webhookURL       string
	allowedHostRegex *regexp.Regexp
	httpClient       *http.Client
	limiter          *ipLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

var (
	server *Server
)

// Init initializes the global web server
func Init(opts Options) (*Server, error) {
	s, err := NewServer(opts)
	if err != nil {
		return nil, err
	}
	server = s
	return server, nil
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server
func NewServer(opts Options) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	var hostRegex *regexp.Regexp
	if opts.AllowedHosts != "" {
		re, err := regexp.Compile(opts.AllowedHosts)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed hosts pattern: %w", err)
		}
		hostRegex = re
	}
	if opts.RateLimit == 0 {
		def := DefaultOptions()
		opts.RateLimit, opts.RateBurst = def.RateLimit, def.RateBurst
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())

	s := &Server{
		engine:           engine,
		webhookURL:       opts.WebhookURL,
		allowedHostRegex: hostRegex,
		httpClient:       &http.Client{Timeout: 5 * time.Second},
		limiter:          newIPLimiter(opts.RateLimit, opts.RateBurst),
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}

	s.engine.Use(
		requestIDMiddleware(),
		cors.New(corsConfig),
		s.logsMiddleware(),
		s.rateLimitMiddleware(),
	)

	s.setupErrorHandlers()

	return s, nil
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requestIDMiddleware tags every request and response with an ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// logsMiddleware logs incoming requests and rejects unknown hosts
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host

		if s.allowedHostRegex == nil || s.allowedHostRegex.MatchString(host) {
			logger.Debug(fmt.Sprintf("[LOG] Nueva solicitud: %s %s", c.Request.Method, c.Request.URL.Path), "WebServer")
			if s.webhookURL != "" {
				go s.sendLogToWebhook(requestInfoFrom(c), false)
			}
			c.Next()
			return
		}

		logger.Warn(fmt.Sprintf("[LOG] Solicitud Sospechosa: %s %s | %s", c.Request.Method, c.Request.URL.Path, c.ClientIP()), "WebServer")
		if s.webhookURL != "" {
			go s.sendLogToWebhook(requestInfoFrom(c), true)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "Forbidden",
			"message": "Host no permitido.",
			"status":  http.StatusForbidden,
		})
	}
}

// requestInfo is copied out of the gin context before it is reused
type requestInfo struct {
	Method  string
	Path    string
	IP      string
	Headers http.Header
	Query   string
}

func requestInfoFrom(c *gin.Context) requestInfo {
	return requestInfo{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		IP:      c.ClientIP(),
		Headers: c.Request.Header.Clone(),
		Query:   c.Request.URL.RawQuery,
	}
}

// sendLogToWebhook sends a log message to the Discord webhook
func (s *Server) sendLogToWebhook(info requestInfo, suspicious bool) {
	title := fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", info.Method)
	color := 0x00AE86

	if suspicious {
		title = fmt.Sprintf("💫 | Solicitud Sospechosa Rechazada: %s %s", info.Method, info.Path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(info.Headers)
	query := info.Query
	if query == "" {
		query = "{}"
	}

	embed := map[string]interface{}{
		"title": title,
		"description": fmt.Sprintf(
			"> **Ruta:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
			info.Path,
			info.IP,
			string(headers),
			query,
		),
		"color":     color,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	jsonData, err := json.Marshal(map[string]interface{}{"embeds": []interface{}{embed}})
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Debug("No se pudo enviar el log al webhook: "+err.Error(), "WebServer")
		return
	}
	defer resp.Body.Close()
}

// ipLimiter keeps one token bucket per client IP
type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*ipEntry
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{limit: limit, burst: burst, clients: make(map[string]*ipEntry)}
}

// allow takes a token for ip, dropping buckets idle for ten minutes once
// the table grows
func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= 4096 {
			for key, e := range l.clients {
				if now.Sub(e.lastSeen) > 10*time.Minute {
					delete(l.clients, key)
				}
			}
		}
		entry = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients that exceed their bucket
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			return
		}
		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  404,
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  405,
		})
	})
}

// Start starts the web server and blocks until it stops
func (s *Server) Start(port string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for open requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
