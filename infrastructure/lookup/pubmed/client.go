package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"refgraph-backend/application/ports"
	apperrors "refgraph-backend/pkg/errors"
)

// maxBatchIDs mirrors the enrichment batch cap; the limiter burst must
// admit one full batch.
const maxBatchIDs = 150

// Client fetches bibliographic summaries from an esummary-style endpoint.
// The service enforces a per-item rate limit, honored here with a token
// limiter; a circuit breaker keeps a flapping upstream from stalling
// every graph build on its timeout.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a lookup client. throttle is the per-item delay the
// service contract requires (~200ms); zero disables throttling.
func NewClient(baseURL string, throttle, timeout time.Duration, logger *zap.Logger) *Client {
	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, maxBatchIDs),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "bibliographic-lookup",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		logger: logger,
	}
}

// FetchByIDs resolves a batch of pmids to partial article records. Best
// effort: the result may cover fewer ids than requested.
func (c *Client) FetchByIDs(ctx context.Context, pmids []string) ([]ports.PartialArticle, error) {
	if len(pmids) == 0 {
		return nil, nil
	}
	if len(pmids) > maxBatchIDs {
		pmids = pmids[:maxBatchIDs]
	}

	if err := c.limiter.WaitN(ctx, len(pmids)); err != nil {
		return nil, apperrors.NewTimeoutError("bibliographic lookup throttle").WithCause(err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, pmids)
	})
	if err != nil {
		return nil, apperrors.NewExternalError("bibliographic-lookup", err)
	}
	return result.([]ports.PartialArticle), nil
}

func (c *Client) fetch(ctx context.Context, pmids []string) ([]ports.PartialArticle, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("retmode", "json")
	params.Set("id", strings.Join(pmids, ","))

	endpoint := c.baseURL + "/esummary.fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var payload esummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	records := make([]ports.PartialArticle, 0, len(pmids))
	for _, uid := range payload.Result.UIDs {
		raw, ok := payload.Result.Docs[uid]
		if !ok {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.logger.Debug("skipping malformed summary", zap.String("uid", uid), zap.Error(err))
			continue
		}
		records = append(records, doc.toPartialArticle(uid))
	}
	return records, nil
}

// esummaryResponse is the envelope of an esummary JSON reply: a "result"
// object holding a "uids" list plus one member per uid.
type esummaryResponse struct {
	Result esummaryResult `json:"result"`
}

type esummaryResult struct {
	UIDs []string `json:"uids"`
	Docs map[string]json.RawMessage
}

// UnmarshalJSON splits the uid list from the per-uid members.
func (r *esummaryResult) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if uids, ok := members["uids"]; ok {
		if err := json.Unmarshal(uids, &r.UIDs); err != nil {
			return err
		}
		delete(members, "uids")
	}
	r.Docs = members
	return nil
}

type esummaryDoc struct {
	UID        string `json:"uid"`
	Title      string `json:"title"`
	PubDate    string `json:"pubdate"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (d esummaryDoc) toPartialArticle(uid string) ports.PartialArticle {
	pmid := d.UID
	if pmid == "" {
		pmid = uid
	}
	rec := ports.PartialArticle{
		PMID:  pmid,
		Title: strings.TrimSpace(d.Title),
		Year:  parsePubYear(d.PubDate),
	}
	for _, id := range d.ArticleIDs {
		if strings.EqualFold(id.IDType, "doi") {
			rec.DOI = id.Value
			break
		}
	}
	for _, author := range d.Authors {
		if author.Name != "" {
			rec.Authors = append(rec.Authors, author.Name)
		}
	}
	return rec
}

// parsePubYear extracts the leading year from a pubdate like "2019 Jan 3".
func parsePubYear(pubdate string) *int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return nil
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1000 || year > 3000 {
		return nil
	}
	return &year
}
