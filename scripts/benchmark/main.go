package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Harvester API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
	urlsIn = flag.String("urls", "", "Comma-separated product page URLs to benchmark (overrides defaults)")
)

// Default pages covering the fetch-engine spectrum: static HTML through
// fully client-rendered galleries.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type extractRequest struct {
	URL       string `json:"url"`
	Timeout   int    `json:"timeout"`
	FetchMode string `json:"fetch_mode,omitempty"`
}

type extractResponse struct {
	Success     bool         `json:"success"`
	Session     *session     `json:"session"`
	ImagesFound bool         `json:"images_found"`
	StatusCode  int          `json:"status_code"`
	EngineUsed  string       `json:"engine_used"`
	Timing      timingInfo   `json:"timing"`
	Error       *errorDetail `json:"error,omitempty"`
}

type session struct {
	Images   []struct{} `json:"images"`
	Metadata struct {
		ProductName string   `json:"product_name"`
		Price       string   `json:"price"`
		Tags        []string `json:"tags"`
	} `json:"metadata"`
}

type timingInfo struct {
	TotalMs   int64 `json:"total_ms"`
	FetchMs   int64 `json:"fetch_ms"`
	ExtractMs int64 `json:"extract_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run         int    `json:"run"`
	TotalMs     int64  `json:"total_ms"`
	FetchMs     int64  `json:"fetch_ms"`
	ExtractMs   int64  `json:"extract_ms"`
	Images      int    `json:"images"`
	ImagesFound bool   `json:"images_found"`
	HasName     bool   `json:"has_name"`
	StatusCode  int    `json:"status_code"`
	Engine      string `json:"engine"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs   float64 `json:"total_ms"`
	FetchMs   float64 `json:"fetch_ms"`
	ExtractMs float64 `json:"extract_ms"`
	Images    float64 `json:"images"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	targets := testURLs
	if *urlsIn != "" {
		targets = nil
		for _, u := range strings.Split(*urlsIn, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				targets = append(targets, struct {
					Label string
					URL   string
				}{"Custom", u})
			}
		}
	}

	fmt.Println("=== Harvester Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure Harvester is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d images  engine=%s\n", rr.TotalMs, rr.Images, rr.Engine)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := extractRequest{
		URL:     url,
		Timeout: 60,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/extract", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var er extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = er.Success
	rr.StatusCode = er.StatusCode
	rr.TotalMs = er.Timing.TotalMs
	rr.FetchMs = er.Timing.FetchMs
	rr.ExtractMs = er.Timing.ExtractMs
	rr.ImagesFound = er.ImagesFound
	rr.Engine = er.EngineUsed
	if er.Session != nil {
		rr.Images = len(er.Session.Images)
		rr.HasName = er.Session.Metadata.ProductName != ""
	}

	if er.Error != nil {
		rr.Error = er.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.ExtractMs += float64(r.ExtractMs)
		avg.Images += float64(r.Images)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.FetchMs /= n
	avg.ExtractMs /= n
	avg.Images /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Images\tEngine\tStatus\n")
	fmt.Fprintf(w, "───\t───────────\t──────────\t──────\t──────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\t%d\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Images,
			dominantEngine(r.Runs),
			dominantStatus(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func dominantStatus(runs []runResult) int {
	counts := map[int]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.StatusCode]++
		}
	}
	best, bestCount := 0, 0
	for code, count := range counts {
		if count > bestCount {
			best = code
			bestCount = count
		}
	}
	return best
}

func dominantEngine(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.Engine]++
		}
	}
	best, bestCount := "-", 0
	for engine, count := range counts {
		if count > bestCount {
			best = engine
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
