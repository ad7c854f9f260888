// Package arcgis re-synchronizes a hosted feature layer from the published
// snapshot: full delete, then batched inserts. Publication failures never
// roll back the snapshot — the CSV stays authoritative.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPortalURL = "https://www.arcgis.com"

// Config holds the publisher's settings.
type Config struct {
	Username  string
	Password  string
	OrgURL    string // organization portal, used when the default portal defers to it
	LayerURL  string // feature layer REST endpoint
	BatchSize int
	Timeout   time.Duration
}

// Client publishes features to one ArcGIS Online feature layer.
type Client struct {
	cfg        Config
	portalURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feature-layer publisher.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Client{
		cfg:       cfg,
		portalURL: defaultPortalURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// FilterPublishable keeps the rows the feature layer may carry: accepted
// sites with coordinates. Everything else stays in the snapshot only.
func FilterPublishable(rows []map[string]string) []map[string]string {
	var out []map[string]string
	for _, row := range rows {
		if row["review_status"] != "Accepted" {
			continue
		}
		if row["geocoded"] != "true" {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Publish replaces the layer's contents with the given snapshot rows.
func (c *Client) Publish(ctx context.Context, rows []map[string]string) error {
	features, err := featuresFromRows(rows)
	if err != nil {
		return err
	}

	token, err := c.generateToken(ctx)
	if err != nil {
		return fmt.Errorf("arcgis login: %w", err)
	}

	if err := c.deleteAll(ctx, token); err != nil {
		return fmt.Errorf("clear layer: %w", err)
	}

	added := 0
	for start := 0; start < len(features); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(features))
		n, err := c.addFeatures(ctx, token, features[start:end])
		if err != nil {
			return fmt.Errorf("add features: %w", err)
		}
		added += n
		c.logger.Info("feature batch added", "count", n)
	}

	c.logger.Info("feature layer updated", "features", added)
	return nil
}

// generateToken logs in against the default portal, falling back to the
// configured organization portal when the default one defers to it.
func (c *Client) generateToken(ctx context.Context) (string, error) {
	token, loginErr := c.tokenFrom(ctx, c.portalURL)
	if loginErr == nil {
		return token, nil
	}

	org := c.cfg.OrgURL
	if org == "" || org == c.portalURL ||
		!strings.Contains(strings.ToLower(loginErr.Error()), "organization") {
		return "", loginErr
	}

	c.logger.Info("retrying login via organization portal", "portal", org)
	return c.tokenFrom(ctx, org)
}

func (c *Client) tokenFrom(ctx context.Context, portal string) (string, error) {
	result, err := c.postForm(ctx, portal+"/sharing/rest/generateToken", url.Values{
		"username": {c.cfg.Username},
		"password": {c.cfg.Password},
		"referer":  {portal},
		"f":        {"json"},
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("portal rejected login: %s", resp.Error.Message)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("portal returned no token")
	}
	return resp.Token, nil
}

func (c *Client) deleteAll(ctx context.Context, token string) error {
	result, err := c.postForm(ctx, c.cfg.LayerURL+"/deleteFeatures", url.Values{
		"where": {"1=1"},
		"f":     {"json"},
		"token": {token},
	})
	if err != nil {
		return err
	}
	if err := checkLayerError(result); err != nil {
		return err
	}
	c.logger.Info("existing features cleared")
	return nil
}

func (c *Client) addFeatures(ctx context.Context, token string, batch []feature) (int, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}

	result, err := c.postForm(ctx, c.cfg.LayerURL+"/addFeatures", url.Values{
		"features": {string(payload)},
		"f":        {"json"},
		"token":    {token},
	})
	if err != nil {
		return 0, err
	}

	var resp struct {
		AddResults []struct {
			Success bool `json:"success"`
		} `json:"addResults"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return 0, fmt.Errorf("decode add response: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("layer rejected batch: %s", resp.Error.Message)
	}

	ok := 0
	for _, r := range resp.AddResults {
		if r.Success {
			ok++
		}
	}
	return ok, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func checkLayerError(result []byte) error {
	var resp struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return fmt.Errorf("decode layer response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("layer error: %s", resp.Error.Message)
	}
	return nil
}

// feature is one point in the layer's REST representation.
type feature struct {
	Geometry   geometry       `json:"geometry"`
	Attributes map[string]any `json:"attributes"`
}

type geometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference spatialReference `json:"spatialReference"`
}

type spatialReference struct {
	WKID int `json:"wkid"`
}

// numericColumns are snapshot columns the layer stores as numbers.
var numericColumns = map[string]bool{
	"record_id": true,
	"latitude":  true,
	"longitude": true,
	"zip_code":  true,
}

// featuresFromRows converts snapshot rows to WGS-84 point features. A row
// lacking a usable record_id or coordinate pair is a data error — filtering
// upstream should have removed it.
func featuresFromRows(rows []map[string]string) ([]feature, error) {
	features := make([]feature, 0, len(rows))
	for _, row := range rows {
		lat, errLat := strconv.ParseFloat(row["latitude"], 64)
		lon, errLon := strconv.ParseFloat(row["longitude"], 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("row %q has no coordinates", row["record_id"])
		}
		id, err := strconv.Atoi(row["record_id"])
		if err != nil {
			return nil, fmt.Errorf("row with invalid record_id %q", row["record_id"])
		}

		attrs := make(map[string]any, len(row))
		for col, val := range row {
			if numericColumns[col] {
				if f, err := strconv.ParseFloat(val, 64); err == nil {
					attrs[col] = f
				} else {
					attrs[col] = 0
				}
				continue
			}
			attrs[col] = val
		}
		attrs["record_id"] = id

		features = append(features, feature{
			Geometry: geometry{
				X:                lon,
				Y:                lat,
				SpatialReference: spatialReference{WKID: 4326},
			},
			Attributes: attrs,
		})
	}
	return features, nil
}
