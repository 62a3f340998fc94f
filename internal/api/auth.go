package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"medcenter/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	clientIDHeader      = "X-Client-Id"
	clientKeyUnknown    = "unknown"

	permReadCatalog       = "read:catalog"
	permStaffAppointments = "staff:appointments"
	permStaffContact      = "staff:contact"
	permStaffExport       = "staff:export"
	permStaffSync         = "staff:sync"
)

var (
	errMissingKey       = errors.New("missing api key")
	errInvalidKey       = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// keyring resolves API keys to configured clients. A client with an empty
// permission list may call everything.
type keyring struct {
	header  string
	clients map[string]config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	header := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &keyring{header: header, clients: m}
}

func (k *keyring) authorize(apiKey, required string) (config.APIClientKey, error) {
	if apiKey == "" {
		return config.APIClientKey{}, errMissingKey
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidKey
	}
	if required == "" || len(client.Permissions) == 0 {
		return client, nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return client, nil
		}
	}
	return client, errPermissionDenied
}

type clientCtxKey struct{}

// ClientName returns the name of the API client authenticated for ctx.
func ClientName(ctx context.Context) string {
	if v, ok := ctx.Value(clientCtxKey{}).(string); ok && v != "" {
		return v
	}
	return "staff"
}

// HTTPAuth provides API-key auth and per-client rate limiting for the REST API.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

// Require rejects requests whose key lacks permission. With auth disabled
// every request passes.
func (a *HTTPAuth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Auth.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			client, err := a.keys.authorize(strings.TrimSpace(r.Header.Get(a.keys.header)), permission)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), clientCtxKey{}, client.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *HTTPAuth) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.RateLimit.RPS > 0 && !a.limiter.get(a.clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// trusted reports whether r carries a known API key, whatever its permissions.
func (a *HTTPAuth) trusted(r *http.Request) bool {
	_, err := a.keys.authorize(strings.TrimSpace(r.Header.Get(a.keys.header)), "")
	return err == nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.header)); apiKey != "" {
		return apiKey
	}
	return remoteHost(r)
}

// contactClient identifies the sender of a contact message. Trusted callers
// such as the bot may name the end user they act for.
func (a *HTTPAuth) contactClient(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(clientIDHeader)); id != "" && a.trusted(r) {
		return id
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}

// AuthInterceptor applies the same keys and limits to gRPC calls.
type AuthInterceptor struct {
	cfg     *config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{
		cfg:     cfg,
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		required := requiredPermission(info.FullMethod)
		if a.cfg.Auth.Enabled && required != "" {
			client, err := a.keys.authorize(a.apiKey(ctx), required)
			switch {
			case errors.Is(err, errPermissionDenied):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case err != nil:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			ctx = context.WithValue(ctx, clientCtxKey{}, client.Name)
		}

		if a.cfg.RateLimit.RPS > 0 && !a.limiter.get(a.clientKey(ctx)).Allow() {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}
		return handler(ctx, req)
	}
}

func requiredPermission(fullMethod string) string {
	if strings.HasPrefix(fullMethod, "/"+catalogServiceName+"/") {
		return permReadCatalog
	}
	return ""
}

func (a *AuthInterceptor) apiKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	return first(md.Get(a.keys.header))
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	if apiKey := a.apiKey(ctx); apiKey != "" {
		return apiKey
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
