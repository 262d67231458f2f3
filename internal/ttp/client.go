package ttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"slotwatch/internal/slot"
	logx "slotwatch/pkg/logx"
)

const (
	DefaultSlotsURL     = "https://ttp.cbp.dhs.gov/schedulerapi/slots?orderBy=soonest&limit={limit}&locationId={location}&minimum={minimum}"
	DefaultLocationsURL = "https://ttp.cbp.dhs.gov/schedulerapi/locations/?temporary=false&inviteOnly=false&operational=true&serviceName=Global+Entry"

	DefaultTimeout     = 10 * time.Second
	DefaultLimit       = 5
	DefaultMinimum     = 1
	DefaultLocationTTL = 15 * 24 * time.Hour

	// responses larger than this are treated as malformed
	maxBodyBytes = 4 << 20
)

var (
	ErrFetch       = errors.New("fetch failed")
	ErrUnknownCity = errors.New("unknown city")
)

// Config controls the API client. Zero fields fall back to the defaults above.
type Config struct {
	SlotsURL     string
	LocationsURL string
	Timeout      time.Duration
	Limit        int
	Minimum      int
	LocationTTL  time.Duration
	UserAgent    string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
	now  func() time.Time

	mu       sync.Mutex
	locs     []LocationInfo
	locsUpTo time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(c *Client) { c.log = log }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.SlotsURL) == "" {
		cfg.SlotsURL = DefaultSlotsURL
	}
	if strings.TrimSpace(cfg.LocationsURL) == "" {
		cfg.LocationsURL = DefaultLocationsURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Minimum <= 0 {
		cfg.Minimum = DefaultMinimum
	}
	if cfg.LocationTTL <= 0 {
		cfg.LocationTTL = DefaultLocationTTL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "slotwatch/1"
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	return c
}

// SlotsURL renders the slots endpoint for a location.
func (c *Client) SlotsURL(locID int) string {
	r := strings.NewReplacer(
		"{location}", strconv.Itoa(locID),
		"{limit}", strconv.Itoa(c.cfg.Limit),
		"{minimum}", strconv.Itoa(c.cfg.Minimum),
	)
	return r.Replace(c.cfg.SlotsURL)
}

// apiSlot is one element of the slots response.
type apiSlot struct {
	LocationID     int    `json:"locationId"`
	StartTimestamp string `json:"startTimestamp"`
	EndTimestamp   string `json:"endTimestamp"`
	Active         *bool  `json:"active,omitempty"`
	Duration       int    `json:"duration"`
}

// FetchSlots returns the currently open slots for a location in response
// order. An empty result means nothing is open.
func (c *Client) FetchSlots(ctx context.Context, loc slot.Location) ([]slot.Slot, error) {
	url := c.SlotsURL(loc.ID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: location %d: %w", ErrFetch, loc.ID, err)
	}
	slots, err := parseSlots(loc.ID, body)
	if err != nil {
		return nil, fmt.Errorf("%w: location %d: %w", ErrFetch, loc.ID, err)
	}
	c.log.Debug("slots fetched", logx.Int("location", loc.ID), logx.Int("count", len(slots)))
	return slots, nil
}

// parseSlots accepts either an array of slot objects or an array of bare
// timestamp strings.
func parseSlots(locID int, body []byte) ([]slot.Slot, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	out := make([]slot.Slot, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 && r[0] == '"' {
			var ts string
			if err := json.Unmarshal(r, &ts); err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			start, wall, err := parseTimestamp(ts)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			out = append(out, slot.Slot{LocationID: locID, Start: start, WallClock: wall})
			continue
		}

		var a apiSlot
		if err := json.Unmarshal(r, &a); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if a.Active != nil && !*a.Active {
			continue
		}
		if strings.TrimSpace(a.StartTimestamp) == "" {
			return nil, fmt.Errorf("slot %d: missing startTimestamp", i)
		}
		start, wall, err := parseTimestamp(a.StartTimestamp)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		s := slot.Slot{LocationID: locID, Start: start, WallClock: wall}
		if a.LocationID != 0 {
			s.LocationID = a.LocationID
		}
		if a.EndTimestamp != "" {
			if end, _, err := parseTimestamp(a.EndTimestamp); err == nil {
				s.End = end
			}
		}
		out = append(out, s)
	}
	return out, nil
}

var (
	wallClockLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}
	zonedLayouts     = []string{time.RFC3339, time.RFC3339Nano}
)

// parseTimestamp parses the timestamp formats the scheduler is known to use
// and reports whether the value carried no UTC offset.
func parseTimestamp(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid timestamp %q", s)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBodyBytes)
	}
	return b, nil
}
