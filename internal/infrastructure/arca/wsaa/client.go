package wsaa

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.mozilla.org/pkcs7"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/credential"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

var tracer = otel.Tracer("mypos/wsaa")

// Authority login endpoints per environment.
const (
	EndpointHomologacion = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	EndpointProduccion   = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
)

// Endpoint resolves the login endpoint for the environment.
func Endpoint(env fiscalconfig.Environment) string {
	if env == fiscalconfig.EnvProduccion {
		return EndpointProduccion
	}
	return EndpointHomologacion
}

// Config holds ticket manager configuration.
type Config struct {
	// Endpoint overrides environment-based endpoint resolution when set
	// (used in tests).
	Endpoint string

	// Service is the authority service the ticket grants access to.
	Service string

	// Timeout bounds the login round-trip.
	Timeout time.Duration

	// Skew shifts the request generation time into the past;
	// Window pushes the request expiration into the future.
	// Both absorb clock drift against the authority.
	Skew   time.Duration
	Window time.Duration
}

// DefaultConfig returns the authority-tolerant defaults.
func DefaultConfig() Config {
	return Config{
		Service: "wsfe",
		Timeout: 30 * time.Second,
		Skew:    5 * time.Minute,
		Window:  12 * time.Hour,
	}
}

// Client obtains and caches authentication tickets.
// Safe for concurrent use: regeneration is serialized per certificate
// identity, and waiters re-check the cache before issuing their own
// signing+network round-trip.
type Client struct {
	cfg   Config
	httpc *http.Client
	store TicketStore
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewClient creates a ticket client backed by the given store.
func NewClient(cfg Config, store TicketStore) *Client {
	if cfg.Service == "" {
		cfg.Service = "wsfe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Skew <= 0 {
		cfg.Skew = 5 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 12 * time.Hour
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// GetTicket returns a valid ticket for the bundle, reusing the cached one
// until expiry. On cache miss or expiry it regenerates exactly once per
// identity regardless of caller concurrency.
func (c *Client) GetTicket(ctx context.Context, env fiscalconfig.Environment, bundle credential.Bundle) (*Ticket, error) {
	identity := string(env) + ":" + bundle.Identity()

	// Dominant cheap path: cached and unexpired, no network call.
	if t, err := c.cached(ctx, identity); err != nil {
		return nil, err
	} else if t != nil {
		return t, nil
	}

	lock := c.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	// A concurrent caller may have regenerated while we waited.
	if t, err := c.cached(ctx, identity); err != nil {
		return nil, err
	} else if t != nil {
		return t, nil
	}

	return c.regenerate(ctx, env, identity, bundle)
}

// cached returns the stored ticket if present and unexpired.
func (c *Client) cached(ctx context.Context, identity string) (*Ticket, error) {
	t, err := c.store.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Expired(c.now()) {
		return nil, nil
	}
	return t, nil
}

func (c *Client) identityLock(identity string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[identity] = lock
	}
	return lock
}

// regenerate signs a fresh login request, submits it, parses the nested
// response and persists the new ticket. Failures are returned, never
// swallowed; retry policy belongs to the caller.
func (c *Client) regenerate(ctx context.Context, env fiscalconfig.Environment, identity string, bundle credential.Bundle) (*Ticket, error) {
	ctx, span := tracer.Start(ctx, "wsaa.login")
	defer span.End()
	span.SetAttributes(
		attribute.String("arca.environment", string(env)),
		attribute.String("arca.service", c.cfg.Service),
	)

	logger.Info(ctx, "regenerating access ticket",
		"identity", identity,
		"service", c.cfg.Service,
	)

	material, err := credential.Extract(bundle)
	if err != nil {
		return nil, err
	}

	body, err := buildLoginTicketRequest(c.cfg.Service, c.now(), c.cfg.Skew, c.cfg.Window)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	cms, err := signCMS(material, body)
	if err != nil {
		return nil, err
	}

	envelope := wrapLoginCms(base64.StdEncoding.EncodeToString(cms))

	raw, err := c.post(ctx, env, envelope)
	if err != nil {
		return nil, err
	}

	ticket, err := parseTicketResponse(raw, c.now())
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, identity, ticket); err != nil {
		return nil, err
	}

	logger.Info(ctx, "access ticket regenerated",
		"identity", identity,
		"expires_at", ticket.ExpiresAt,
	)
	return ticket, nil
}

// signCMS produces an attached (not detached) CMS signature over the body.
func signCMS(material *credential.Material, body []byte) ([]byte, error) {
	signed, err := pkcs7.NewSignedData(body)
	if err != nil {
		return nil, apperror.NewSigning(err)
	}
	if err := signed.AddSigner(material.Certificate, material.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, apperror.NewSigning(err)
	}
	der, err := signed.Finish()
	if err != nil {
		return nil, apperror.NewSigning(err)
	}
	return der, nil
}

func (c *Client) post(ctx context.Context, env fiscalconfig.Environment, envelope []byte) ([]byte, error) {
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = Endpoint(env)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperror.NewTicketRequest("login request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.NewTicketRequest("failed to read login response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.NewTicketRequest(
			fmt.Sprintf("login endpoint returned status %d", resp.StatusCode), nil).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", truncate(string(raw), 500))
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
