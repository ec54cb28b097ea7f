package beacon

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/protolambda/eth2api"
	"github.com/protolambda/eth2api/client/beaconapi"
	"github.com/protolambda/eth2api/client/configapi"
	"github.com/protolambda/zrnt/eth2/beacon/common"
)

const (
	octetStream    = "application/octet-stream"
	versionHeader  = "Eth-Consensus-Version"
	headStatePath  = "/eth/v2/debug/beacon/states/head"
	maxStateLength = 1 << 30
)

// Client talks to the standard beacon node API.
type Client struct {
	addr string
	http *http.Client
	api  *eth2api.Eth2HttpClient

	maxStateSize int64
}

// NewClient creates a client for the beacon node at addr.
// The extra headers are sent with every request, e.g. for authentication with a hosted node.
func NewClient(addr string, headers http.Header, timeout time.Duration) *Client {
	addr = strings.TrimSuffix(addr, "/")
	cl := &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{headers: headers, base: http.DefaultTransport},
	}
	return &Client{
		addr: addr,
		http: cl,
		api: &eth2api.Eth2HttpClient{
			Addr:  addr,
			Cli:   cl,
			Codec: eth2api.JSONCodec{},
		},
		maxStateSize: maxStateLength,
	}
}

// Spec fetches the chain configuration of the node.
func (c *Client) Spec(ctx context.Context) (*common.Spec, error) {
	var spec common.Spec
	if err := configapi.Spec(ctx, c.api, &spec); err != nil {
		return nil, fmt.Errorf("failed to fetch spec: %w", err)
	}
	return &spec, nil
}

// Genesis fetches the genesis info of the node. It fails if the chain has no genesis yet.
func (c *Client) Genesis(ctx context.Context) (*eth2api.GenesisResponse, error) {
	var genesis eth2api.GenesisResponse
	if exists, err := beaconapi.Genesis(ctx, c.api, &genesis); err != nil {
		return nil, fmt.Errorf("failed to fetch genesis: %w", err)
	} else if !exists {
		return nil, fmt.Errorf("no genesis information available")
	}
	return &genesis, nil
}

// RawState is an SSZ encoded beacon state as served by the debug API.
type RawState struct {
	Data    []byte
	// Version is the fork name from the Eth-Consensus-Version header, may be empty.
	Version string
}

// HeadState fetches the SSZ encoded state at the head of the chain.
func (c *Client) HeadState(ctx context.Context) (*RawState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+headStatePath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", octetStream)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request head state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("head state request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if ct := resp.Header.Get("Content-Type"); !isOctetStream(ct) {
		return nil, fmt.Errorf("unexpected head state content type %q", ct)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxStateSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read head state: %w", err)
	}
	if int64(len(data)) > c.maxStateSize {
		return nil, fmt.Errorf("head state exceeds %d bytes", c.maxStateSize)
	}
	return &RawState{Data: data, Version: resp.Header.Get(versionHeader)}, nil
}

func isOctetStream(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, octetStream)
	}
	return mt == octetStream
}

// ParseHeaders parses "Name: value" pairs. A name may be repeated.
func ParseHeaders(pairs []string) (http.Header, error) {
	h := make(http.Header)
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", p)
		}
		h.Add(textproto.CanonicalMIMEHeaderKey(name), strings.TrimSpace(value))
	}
	return h, nil
}

type headerTransport struct {
	headers http.Header
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for name, values := range t.headers {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return t.base.RoundTrip(req)
}
