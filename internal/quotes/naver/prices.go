package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// FetchDailyBars fetches daily candles for one security from the Naver
// Finance chart API.
func (c *Client) FetchDailyBars(ctx context.Context, sec contracts.Security, query contracts.DateRange) ([]contracts.Bar, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartBaseURL, sec.String(),
		query.Start.Format("20060102"), query.End.Format("20060102"),
	)

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, browserHeaders)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	bars, err := c.parseChartResponse(string(body), sec)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"security": sec.String(),
		"count":    len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// parseChartResponse parses the chart API body. The endpoint returns a
// JSON-ish array with single quotes, so normalize before decoding.
func (c *Client) parseChartResponse(body string, sec contracts.Security) ([]contracts.Bar, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return c.parseChartJSON(rawData, sec)
	}

	// Fallback to regex parsing
	return c.parseChartRegex(body, sec)
}

// parseChartJSON parses the decoded array format. Row 0 is the header.
func (c *Client) parseChartJSON(rawData [][]interface{}, sec contracts.Security) ([]contracts.Bar, error) {
	var bars []contracts.Bar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := parseChartDate(strings.Trim(dateStr, "\""))
		if err != nil {
			continue
		}

		bars = append(bars, contracts.Bar{
			Security: sec,
			Date:     contracts.Day(tradeDate),
			Open:     toFloat(row[1]),
			High:     toFloat(row[2]),
			Low:      toFloat(row[3]),
			Close:    toFloat(row[4]),
			Volume:   int64(toFloat(row[5])),
		})
	}
	return bars, nil
}

// parseChartRegex parses the raw body with a regex when decoding fails.
func (c *Client) parseChartRegex(body string, sec contracts.Security) ([]contracts.Bar, error) {
	re := regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\]`)
	matches := re.FindAllStringSubmatch(body, -1)

	var bars []contracts.Bar
	for _, match := range matches {
		if len(match) < 7 {
			continue
		}

		tradeDate, err := parseChartDate(match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(match[2], 64)
		high, _ := strconv.ParseFloat(match[3], 64)
		low, _ := strconv.ParseFloat(match[4], 64)
		closePrice, _ := strconv.ParseFloat(match[5], 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)

		bars = append(bars, contracts.Bar{
			Security: sec,
			Date:     contracts.Day(tradeDate),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return bars, nil
}

// parseChartDate parses "20240115" or "2024-01-15".
func parseChartDate(s string) (time.Time, error) {
	if len(s) == 8 {
		s = s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return time.Parse("2006-01-02", s)
}

// toFloat converts the mixed number types the chart API emits.
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(val, 64)
		return n
	default:
		return 0
	}
}
