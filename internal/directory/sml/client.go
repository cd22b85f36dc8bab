// Package sml is the SOAP client for the directory's ManageParticipantIdentifier
// service. Create and delete are inverse operations; the undo calls reuse them.
package sml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"smp/internal/identifier"
	"smp/pkg/platform/circuit"
	"smp/pkg/platform/sentinel"
)

const (
	NamespaceSOAP    = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceManage  = "http://busdox.org/serviceMetadata/ManageParticipantIdentifierService/1.0/"
	NamespaceIDs     = "http://busdox.org/transport/identifiers/1.0/"
	actionCreate     = NamespaceManage + ":createIn"
	actionDelete     = NamespaceManage + ":deleteIn"
	maxResponseBytes = 1 << 20
)

// Config configures the client.
type Config struct {
	// URL of the ManageParticipantIdentifier endpoint.
	URL string
	// SMPID is the identifier this SMP is registered under in the directory.
	SMPID          string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Client implements directory.Gateway over SOAP 1.1.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from the configured timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBreaker guards Register and Unregister with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// New builds a client. URL and SMPID are required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("directory URL is required")
	}
	if cfg.SMPID == "" {
		return nil, fmt.Errorf("SMP id is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		}
	}
	return c, nil
}

func (c *Client) Register(ctx context.Context, p identifier.ParticipantID) error {
	return c.guarded(ctx, "CreateParticipantIdentifier", actionCreate, p)
}

func (c *Client) Unregister(ctx context.Context, p identifier.ParticipantID) error {
	return c.guarded(ctx, "DeleteParticipantIdentifier", actionDelete, p)
}

// UndoRegister deletes a participant that was registered moments ago.
func (c *Client) UndoRegister(ctx context.Context, p identifier.ParticipantID) error {
	return c.call(ctx, "DeleteParticipantIdentifier", actionDelete, p)
}

// UndoUnregister recreates a participant that was unregistered moments ago.
func (c *Client) UndoUnregister(ctx context.Context, p identifier.ParticipantID) error {
	return c.call(ctx, "CreateParticipantIdentifier", actionCreate, p)
}

func (c *Client) guarded(ctx context.Context, element, action string, p identifier.ParticipantID) error {
	if c.breaker == nil {
		return c.call(ctx, element, action, p)
	}
	if !c.breaker.Allow() {
		return fmt.Errorf("directory %s: circuit open: %w", element, sentinel.ErrUnavailable)
	}
	err := c.call(ctx, element, action, p)
	switch {
	case err == nil || isRejection(err):
		// a fault is an answer; the directory is reachable
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "directory circuit closed", "breaker", c.breaker.Name())
		}
	default:
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "directory circuit opened", "breaker", c.breaker.Name(), "error", err)
		}
	}
	return err
}

func (c *Client) call(ctx context.Context, element, action string, p identifier.ParticipantID) error {
	body, err := c.envelope(element, p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory %s: %v: %w", element, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("directory %s: read response: %v: %w", element, err, sentinel.ErrUnavailable)
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if fault, ok := parseFault(respBody); ok {
		return fmt.Errorf("directory %s rejected %s: %s: %w", element, p.URIEncoded(), fault, sentinel.ErrRejected)
	}
	return fmt.Errorf("directory %s: unexpected status %d: %w", element, resp.StatusCode, sentinel.ErrUnavailable)
}

// envelope builds the SOAP request for one participant.
func (c *Client) envelope(element string, p identifier.ParticipantID) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("S:Envelope")
	env.CreateAttr("xmlns:S", NamespaceSOAP)
	body := env.CreateElement("S:Body")

	op := body.CreateElement("lrs:" + element)
	op.CreateAttr("xmlns:lrs", NamespaceManage)
	op.CreateAttr("xmlns:ids", NamespaceIDs)

	pid := op.CreateElement("ids:ParticipantIdentifier")
	pid.CreateAttr("scheme", p.Scheme)
	pid.SetText(p.Value)

	smp := op.CreateElement("lrs:ServiceMetadataPublisherID")
	smp.SetText(c.cfg.SMPID)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("encode directory request: %w", err)
	}
	return out, nil
}

// parseFault extracts "<fault type>: <message>" from a SOAP fault.
func parseFault(body []byte) (string, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", false
	}
	fault := doc.FindElement("//Fault")
	if fault == nil {
		return "", false
	}
	msg := ""
	if fs := fault.FindElement("faultstring"); fs != nil {
		msg = strings.TrimSpace(fs.Text())
	}
	kind := "Fault"
	if detail := fault.FindElement("detail"); detail != nil {
		if children := detail.ChildElements(); len(children) > 0 {
			kind = children[0].Tag
			if fm := children[0].FindElement("FaultMessage"); fm != nil && msg == "" {
				msg = strings.TrimSpace(fm.Text())
			}
		}
	}
	return kind + ": " + msg, true
}

func isRejection(err error) bool {
	return errors.Is(err, sentinel.ErrRejected)
}
