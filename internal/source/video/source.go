// Package video monitors a video platform creator's uploads through its
// public archives API.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/feedwatch/internal/config"
	"github.com/feedwatch/internal/models"
	"github.com/feedwatch/internal/source"
	"github.com/feedwatch/pkg/logger"
	"github.com/feedwatch/pkg/ratelimit"
)

const defaultTimeout = 10 * time.Second

// archivesResponse is the platform's archives envelope. Anything outside
// this shape is a fetch error, not a crash.
type archivesResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Videos []json.RawMessage `json:"videos"`
	} `json:"data"`
}

type videoEntry struct {
	BVID        string `json:"bvid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Created     int64  `json:"created"`
	Author      string `json:"author"`
	ViewCount   int64  `json:"view_count"`
	LikeCount   int64  `json:"like_count"`
}

// Source implements source.ContentSource for one monitored creator
type Source struct {
	creatorName string
	creatorID   string
	apiBase     string
	maxVideos   int
	watchURL    string
	client      *http.Client
	limiter     *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a video source for a single creator
func New(cfg config.VideoConfig, creator config.VideoCreator, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	maxVideos := cfg.MaxVideos
	if maxVideos <= 0 {
		maxVideos = 5
	}
	return &Source{
		creatorName: creator.Name,
		creatorID:   creator.ID,
		apiBase:     cfg.APIBase,
		maxVideos:   maxVideos,
		watchURL:    cfg.WatchURL,
		client:      &http.Client{Timeout: defaultTimeout},
		limiter:     limiter,
		log:         log.WithSource("video", creator.Name),
	}
}

// NewMultiple creates one source per configured creator
func NewMultiple(cfg config.VideoConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) []*Source {
	sources := make([]*Source, 0, len(cfg.Creators))
	for _, creator := range cfg.Creators {
		sources = append(sources, New(cfg, creator, limiter, log))
	}
	return sources
}

// Name returns the source name
func (s *Source) Name() string {
	return "video:" + s.creatorID
}

// Source returns the video origin
func (s *Source) Source() models.Source {
	return models.SourceVideo
}

// Fetch retrieves the creator's latest uploads as raw records
func (s *Source) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if err := s.limiter.Wait(ctx, ratelimit.LimiterVideo); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	payload, err := s.fetchArchives(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(payload.Data.Videos))
	for _, raw := range payload.Data.Videos {
		var entry videoEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.log.Warn().Err(err).Msg("Skipping malformed video entry")
			continue
		}

		author := entry.Author
		if author == "" {
			author = s.creatorName
		}
		record := models.RawRecord{
			"bvid":        entry.BVID,
			"title":       entry.Title,
			"description": entry.Description,
			"url":         s.videoURL(entry.BVID),
			"author":      author,
			"source_data": map[string]interface{}{
				"bvid":       entry.BVID,
				"creator_id": s.creatorID,
				"creator":    s.creatorName,
				"view_count": entry.ViewCount,
				"like_count": entry.LikeCount,
			},
		}
		if entry.Created > 0 {
			record["created"] = entry.Created
		}
		records = append(records, record)
	}

	s.log.Info().
		Int("count", len(records)).
		Str("creator", s.creatorName).
		Msg("Fetched creator uploads")

	return records, nil
}

// HealthCheck verifies the archives endpoint responds for the creator
func (s *Source) HealthCheck(ctx context.Context) error {
	_, err := s.fetchArchives(ctx)
	return err
}

func (s *Source) fetchArchives(ctx context.Context) (*archivesResponse, error) {
	endpoint := fmt.Sprintf("%s/archives", s.apiBase)
	params := url.Values{}
	params.Set("mid", s.creatorID)
	params.Set("ps", strconv.Itoa(s.maxVideos))
	params.Set("orderby", "pubdate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build archives request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "feedwatch/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archives request for creator %s failed: %w", s.creatorID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archives request for creator %s returned status %d", s.creatorID, resp.StatusCode)
	}

	var payload archivesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode archives response: %w", err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("archives API error for creator %s: code=%d message=%s",
			s.creatorID, payload.Code, payload.Message)
	}
	return &payload, nil
}

func (s *Source) videoURL(bvid string) string {
	if bvid == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.watchURL, bvid)
}

// Ensure Source implements source.ContentSource
var _ source.ContentSource = (*Source)(nil)
