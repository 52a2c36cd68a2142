package keyrate

import (
	"bytes"
	"context"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/rates"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

var ErrNoKeyRate = errors.New("no key rate data")

type Config struct {
	URL          string                         `toml:"url"`
	TimeoutSec   int                            `toml:"timeout_sec"`
	LookbackDays int                            `toml:"lookback_days"`
	Margins      map[domain.LoanPurpose]float64 `toml:"margins"`
}

func DefaultConfig() Config {
	return Config{
		URL:          "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx",
		TimeoutSec:   10,
		LookbackDays: 30,
		Margins: map[domain.LoanPurpose]float64{
			domain.PurposeHomePurchase: 2.5,
			domain.PurposeInvestment:   4,
			domain.PurposeUpgrade:      5,
			domain.PurposeRefinance:    3,
		},
	}
}

// Client reads the central bank key rate over the DailyInfo SOAP service.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

func (c *Client) buildSOAPRequest() string {
	to := c.now()
	from := to.AddDate(0, 0, -c.cfg.LookbackDays)
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
	<soap12:Body>
		<KeyRate xmlns="http://web.cbr.ru/">
			<fromDate>%s</fromDate>
			<ToDate>%s</ToDate>
		</KeyRate>
	</soap12:Body>
</soap12:Envelope>`, from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// KeyRate returns the most recent key rate in percent.
func (c *Client) KeyRate(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBufferString(c.buildSOAPRequest()))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("key rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	rate, err := parseKeyRate(body)
	if err != nil {
		return 0, err
	}
	c.logger.InfoContext(ctx, "Retrieved key rate", slog.Float64("rate_percent", rate))
	return rate, nil
}

func parseKeyRate(body []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return 0, ErrNoKeyRate
	}

	latest := rows[0]
	var latestAt time.Time
	for _, kr := range rows {
		dt := kr.FindElement("./DT")
		if dt == nil {
			continue
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(dt.Text()))
		if err != nil {
			continue
		}
		if at.After(latestAt) {
			latest, latestAt = kr, at
		}
	}

	rateElement := latest.FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("%w: rate element not found", ErrNoKeyRate)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(rateElement.Text()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate: %w", err)
	}
	return rate, nil
}

// DefaultRates derives a fallback table from the key rate: each purpose with a configured margin
// gets key rate plus margin. Fees carry over from base; a promotion survives only while it stays
// below the new regular rate.
func DefaultRates(keyRate float64, margins map[domain.LoanPurpose]float64, base map[domain.LoanPurpose]rates.DefaultRate) map[domain.LoanPurpose]rates.DefaultRate {
	out := make(map[domain.LoanPurpose]rates.DefaultRate, len(base))
	for purpose, d := range base {
		out[purpose] = d
	}
	for purpose, margin := range margins {
		d := out[purpose]
		d.RatePercent = keyRate + margin
		if d.PromotionalRatePercent != nil && *d.PromotionalRatePercent >= d.RatePercent {
			d.PromotionalRatePercent = nil
			d.PromotionalPeriodMonths = 0
		}
		out[purpose] = d
	}
	return out
}
