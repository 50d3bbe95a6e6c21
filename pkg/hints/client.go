package hints

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
)

const (
	defaultClientTimeout  = 10 * time.Second
	defaultClientRetryMax = 3
)

// Client fetches hints from the external rule service at
// GET {baseURL}/api/v1/relationhints/{agencyID}.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     logger.Logger
}

type ClientOption func(*Client)

func WithRetryMax(retryMax int) ClientOption {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

var _ Provider = (*Client)(nil)

func NewClient(baseURL string, opts ...ClientOption) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	httpClient.RetryMax = defaultClientRetryMax
	httpClient.HTTPClient.Timeout = defaultClientTimeout
	httpClient.HTTPClient.Transport = otelhttp.NewTransport(httpClient.HTTPClient.Transport)

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, agencyID int) (AgencyHints, error) {
	url := fmt.Sprintf("%s/api/v1/relationhints/%d", c.baseURL, agencyID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return AgencyHints{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AgencyHints{}, fmt.Errorf("fetch relation hints for %d: %w", agencyID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AgencyHints{}, fmt.Errorf("read relation hints for %d: %w", agencyID, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WarnWithContext(ctx, "relation hints request failed",
			zap.Int("agency_id", agencyID),
			zap.Int("status", resp.StatusCode))
		return AgencyHints{}, fmt.Errorf("fetch relation hints for %d: unexpected status %d", agencyID, resp.StatusCode)
	}

	return parseHints(agencyID, body)
}

func parseHints(agencyID int, body []byte) (AgencyHints, error) {
	if !gjson.ValidBytes(body) {
		return AgencyHints{}, fmt.Errorf("relation hints for %d: invalid json", agencyID)
	}
	result := gjson.ParseBytes(body)

	h := AgencyHints{
		AgencyID:         agencyID,
		UsesCommonAgency: result.Get("usesCommonAgency").Bool(),
		UsesEnrichments:  result.Get("usesEnrichments").Bool(),
	}
	for _, v := range result.Get("candidateCommonAgencies").Array() {
		h.CandidateCommonAgencies = append(h.CandidateCommonAgencies, int(v.Int()))
	}
	for _, v := range result.Get("agencyPriority").Array() {
		h.AgencyPriority = append(h.AgencyPriority, int(v.Int()))
	}
	if len(h.AgencyPriority) == 0 {
		h.AgencyPriority = []int{agencyID}
	}

	return h, nil
}
