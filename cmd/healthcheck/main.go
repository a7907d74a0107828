package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// healthResponse matches the envelope written by the /health handler.
type healthResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Status   string                       `json:"status"`
		Services map[string]map[string]string `json:"services"`
	} `json:"data"`
}

func healthURL() string {
	if url := os.Getenv("HEALTHCHECK_URL"); url != "" {
		return url
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return "http://localhost:" + port + "/health"
}

func check(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "healthcheck/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !health.Success || health.Data.Status != "healthy" {
		for name, svc := range health.Data.Services {
			fmt.Printf("  %s: %s\n", name, svc["status"])
		}
		return fmt.Errorf("service is not healthy: status %d, %q", resp.StatusCode, health.Data.Status)
	}
	return nil
}

func main() {
	client := &http.Client{Timeout: 3 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := check(ctx, client, healthURL()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
}
