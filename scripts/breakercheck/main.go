// breakercheck drives a running proxy until an upstream pauses and shows how
// traffic moves between the two destinations.
//
// Usage:
//
//	go run ./scripts/breakercheck -proxy http://localhost:8080 -key secret
//
// Run it against the fake upstream with a high -fail-rate to watch the
// fraud-score host pause and leads fail over to lead delivery.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type cacheStatus struct {
	MaxRequestErrorCount int      `json:"max_request_error_count"`
	ResetPauseMinutes    float64  `json:"reset_pause_minutes"`
	Tracked              int      `json:"tracked"`
	Paused               []string `json:"paused"`
	Hosts                []struct {
		ProxyHost       string `json:"proxy_host"`
		ErrorCount      int    `json:"error_count"`
		ErrorsRemaining int    `json:"errors_remaining"`
		ResumeTime      string `json:"resume_time"`
		State           string `json:"state"`
	} `json:"hosts"`
}

func main() {
	var (
		proxyURL = flag.String("proxy", "http://localhost:8080", "Proxy URL")
		authKey  = flag.String("key", "", "AuthKey header value")
		requests = flag.Int("requests", 30, "Leads per phase")
		split    = flag.Int("split", -1, "Split override, negative keeps the configured split")
		reset    = flag.Bool("clear", true, "Clear the breaker cache before and after the run")
	)
	flag.Parse()

	client := &http.Client{Timeout: 45 * time.Second}
	base := strings.TrimRight(*proxyURL, "/")

	fmt.Println(colorCyan + "━━━ BREAKER CHECK ━━━" + colorReset)
	fmt.Println()

	if *reset {
		if err := clearCache(client, base); err != nil {
			fmt.Printf(colorYellow+"  Could not clear cache: %v\n"+colorReset, err)
		}
	}

	fmt.Println(colorBlue + "━━━ PHASE 1: Send leads ━━━" + colorReset)
	hosts := make(map[string]int)
	statuses := make(map[int]int)
	for i := 0; i < *requests; i++ {
		status, host, err := sendLead(client, base, *authKey, *split, i)
		if err != nil {
			fmt.Printf(colorRed+"  Lead %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		statuses[status]++
		hosts[host]++
		if status == http.StatusServiceUnavailable {
			fmt.Printf(colorRed+"  Lead %d: no destination available\n"+colorReset, i+1)
		}
	}

	fmt.Println("\n  Destination distribution:")
	for host, count := range hosts {
		fmt.Printf("    %s → %d leads\n", host, count)
	}
	fmt.Println("\n  Status codes:")
	for status, count := range statuses {
		fmt.Printf("    %d → %d\n", status, count)
	}
	if len(hosts) == 0 {
		fmt.Println(colorRed + "  ✗ No leads were answered. Is the proxy running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println()

	fmt.Println(colorBlue + "━━━ PHASE 2: Breaker status ━━━" + colorReset)
	status, err := getStatus(client, base)
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch cache status: %v\n"+colorReset, err)
	} else {
		fmt.Printf("  Limit %d errors, pause %.0f minutes, %d hosts tracked\n",
			status.MaxRequestErrorCount, status.ResetPauseMinutes, status.Tracked)
		for _, h := range status.Hosts {
			state := colorGreen + h.State + colorReset
			if h.State == "PAUSED" {
				state = colorRed + h.State + colorReset
			}
			fmt.Printf("    %s → %s (errors: %d, remaining: %d, resume in: %s)\n",
				h.ProxyHost, state, h.ErrorCount, h.ErrorsRemaining, h.ResumeTime)
		}
		if len(status.Paused) > 0 {
			fmt.Println(colorYellow + "  ⚠ Paused: " + strings.Join(status.Paused, ", ") + colorReset)
		} else {
			fmt.Println(colorGreen + "  ✓ No host paused" + colorReset)
		}
	}
	fmt.Println()

	if *reset {
		fmt.Println(colorBlue + "━━━ PHASE 3: Clear ━━━" + colorReset)
		if err := clearCache(client, base); err != nil {
			fmt.Printf(colorYellow+"  Could not clear cache: %v\n"+colorReset, err)
		} else {
			fmt.Println(colorGreen + "  ✓ Breaker cache cleared" + colorReset)
		}
	}
}

func sendLead(client *http.Client, base, authKey string, split, n int) (int, string, error) {
	body := fmt.Sprintf(`{"phone_1":"555%07d","promo_description_rmi":"breaker check"}`, n)

	target := base + "/?slack=false"
	if split >= 0 {
		target += fmt.Sprintf("&split=%d", split)
	}

	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if authKey != "" {
		req.Header.Set("AuthKey", authKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("X-Proxy-Host"), nil
}

func getStatus(client *http.Client, base string) (*cacheStatus, error) {
	resp, err := client.Get(base + "/cache/status/")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var status cacheStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func clearCache(client *http.Client, base string) error {
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Get(base + "/cache/clear/")
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
