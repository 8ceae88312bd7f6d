package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"noisedash/internal/api/models"
)

// Terminal monitor for the noisedash API: polls the historical readings
// endpoint and renders the aggregated series with threshold coloring.

type Config struct {
	ServerURL   string
	Range       string
	Breakdown   string
	DeviceID    string
	AuthToken   string
	RefreshRate time.Duration
	Once        bool
}

type apiEnvelope struct {
	Status bool                     `json:"status"`
	Data   []models.AggregatedPoint `json:"data"`
	Error  string                   `json:"error"`
}

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	normalColor   = color.New(color.FgGreen)
	elevatedColor = color.New(color.FgYellow)
	highColor     = color.New(color.FgMagenta)
	criticalColor = color.New(color.FgRed, color.Bold)
)

func main() {
	config := parseFlags()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println()
		os.Exit(0)
	}()

	if config.Once {
		if err := renderOnce(config); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(config.RefreshRate)
	defer ticker.Stop()

	if err := renderOnce(config); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	for range ticker.C {
		if err := renderOnce(config); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ServerURL, "url", "http://localhost:3001", "noisedash server URL")
	flag.StringVar(&config.Range, "range", "last_hour", "Range selector (last_hour, today, yesterday, this_week, this_month)")
	flag.StringVar(&config.Breakdown, "breakdown", "minute", "Breakdown unit (second, minute, hour, day)")
	flag.StringVar(&config.DeviceID, "device", "", "Restrict to a single device id")
	flag.StringVar(&config.AuthToken, "token", "", "Bearer token when the server checks tokens")
	flag.DurationVar(&config.RefreshRate, "refresh", 30*time.Second, "Refresh rate (e.g., 30s, 1m)")
	flag.BoolVar(&config.Once, "once", false, "Render a single snapshot and exit")

	flag.Parse()
	return config
}

func renderOnce(config Config) error {
	points, err := fetchHistorical(config)
	if err != nil {
		return err
	}

	headerColor.Printf("%-22s %10s %10s %10s %10s\n", "BUCKET (UTC)", "AVG", "MIN", "MAX", "P95")
	if len(points) == 0 {
		fmt.Println("  (no readings in range)")
		return nil
	}

	for _, p := range points {
		fmt.Printf("%-22s ", p.Time)
		colorFor(p.Avg).Printf("%10.2f ", p.Avg)
		fmt.Printf("%10.2f ", p.Min)
		colorFor(p.Max).Printf("%10.2f ", p.Max)
		fmt.Printf("%10.2f\n", p.P95)
	}
	fmt.Println()
	return nil
}

// colorFor picks the output color from the dashboard noise thresholds
func colorFor(dba float64) *color.Color {
	switch models.ClassifyNoise(dba) {
	case models.NoiseLevelNormal:
		return normalColor
	case models.NoiseLevelElevated:
		return elevatedColor
	case models.NoiseLevelHigh:
		return highColor
	default:
		return criticalColor
	}
}

func fetchHistorical(config Config) ([]models.AggregatedPoint, error) {
	query := url.Values{}
	query.Set("range", config.Range)
	query.Set("breakdown", config.Breakdown)
	if config.DeviceID != "" {
		query.Set("deviceId", config.DeviceID)
	}

	endpoint := fmt.Sprintf("%s/api/v1/readings/historical?%s", config.ServerURL, query.Encode())
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+config.AuthToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response from %s: %w", endpoint, err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("server error: %s", envelope.Error)
	}
	return envelope.Data, nil
}
