// Package sourcing holds the sourcing collaborator: given a finalized
// specification it returns candidate purchase listings from the web.
package sourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/procureflow-core/server/internal/agent/model"
	errx "github.com/procureflow-core/server/internal/core/error"
	logx "github.com/procureflow-core/server/pkg/logger"
)

// Sourcer finds purchase listings for a finalized specification. Failures
// never block a turn; callers swallow errors and attach an empty result list.
type Sourcer interface {
	FindOptions(ctx context.Context, spec *model.FinalizedSpecification) ([]model.SourcingResult, error)
}

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	// queryFeatureCount bounds how many features are appended to the search
	// query for specificity.
	queryFeatureCount = 2
)

// GoogleSearchSourcer queries the Google Custom Search JSON API.
type GoogleSearchSourcer struct {
	cfg     model.SourcingConfig
	baseURL string
	client  *http.Client
}

func NewGoogleSearchSourcer(cfg model.SourcingConfig) *GoogleSearchSourcer {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if !cfg.Configured() {
		logx.Warn().Msg("GOOGLE_API_KEY or GOOGLE_SEARCH_ENGINE_ID not set; sourcing disabled")
	}
	return &GoogleSearchSourcer{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API endpoint; used by tests.
func (s *GoogleSearchSourcer) WithBaseURL(base string) *GoogleSearchSourcer {
	s.baseURL = base
	return s
}

func (s *GoogleSearchSourcer) FindOptions(ctx context.Context, spec *model.FinalizedSpecification) ([]model.SourcingResult, error) {
	if !s.cfg.Configured() {
		return nil, nil
	}
	if spec == nil || spec.Name == "" {
		return nil, nil
	}

	query := BuildQuery(spec)
	logx.Info().Str("query", query).Msg("sourcing search")

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", s.cfg.APIKey)
	q.Set("cx", s.cfg.SearchEngineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(s.cfg.MaxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, errx.SourcingErrorMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errx.New(
			fmt.Errorf("search returned %d: %s", resp.StatusCode, string(body)),
			http.StatusBadGateway, errx.SourcingErrorMessage)
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errx.New(err, http.StatusBadGateway, errx.SourcingErrorMessage)
	}

	results := make([]model.SourcingResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Title == "" {
			item.Title = "No Title"
		}
		if item.Link == "" {
			item.Link = "#"
		}
		if item.Snippet == "" {
			item.Snippet = "No description available."
		}
		results = append(results, model.SourcingResult(item))
	}
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}
	return results, nil
}

// BuildQuery constructs the web search query for a specification: the
// product name prefixed with purchase intent plus its leading features.
func BuildQuery(spec *model.FinalizedSpecification) string {
	query := "buy " + spec.Name
	if len(spec.Features) > 0 {
		features := spec.Features
		if len(features) > queryFeatureCount {
			features = features[:queryFeatureCount]
		}
		query += " " + strings.Join(features, " ")
	}
	return query
}

var _ Sourcer = (*GoogleSearchSourcer)(nil)
