package httpx

import (
    "net"
    "net/http"
    "time"
)

// DefaultTimeout bounds a whole request so a hung upstream cannot stall an update cycle.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when the caller did not set one.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) yfquotes/1.0"

// Client is a small wrapper around http.Client with sane defaults.
// It satisfies the Do(*http.Request) shape the quote clients depend on.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

func New(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = DefaultTimeout }
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          10,
        MaxIdleConnsPerHost:   2,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: 5 * time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: DefaultUserAgent}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}
