// Package main provides a performance benchmarking tool for the aqimport CLI.
// It serves a synthetic AQICN feed locally and measures import times across
// feed sizes and store backends. Each size is imported several times; the
// first successful run against a fresh store is treated as cold and the rest,
// which also dedupe the rows already stored, are averaged as warm.
//
// Prerequisites:
// - aqimport binary installed and available in PATH
//
// Usage: go run benchmark/main.go [rows-per-period...]
//
//	rows-per-period: Feed sizes to benchmark (default: 1000 10000 100000)
package main

import (
	"encoding/csv"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Rows        int
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Timeout     time.Duration
	NoStoreRuns int
	StoreRuns   int
	Periods     []string
	Sizes       []int
}

var feedCities = []string{"Milan", "Rome", "Paris", "Lyon", "Madrid", "Berlin", "Vienna", "Prague"}

var feedSpecies = []string{"pm25", "pm10", "no2", "o3", "temperature", "humidity"}

func main() {
	config := BenchmarkConfig{
		Timeout:     5 * time.Minute,
		NoStoreRuns: 3,
		StoreRuns:   4,
		Periods:     []string{"2020Q1", "2020Q2", "2020Q3"},
		Sizes:       []int{1000, 10000, 100000},
	}

	if len(os.Args) > 1 {
		config.Sizes = nil
		for _, arg := range os.Args[1:] {
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				fmt.Printf("Usage: %s [rows-per-period...]\n", os.Args[0])
				os.Exit(1)
			}
			config.Sizes = append(config.Sizes, n)
		}
	}

	if _, err := exec.LookPath("aqimport"); err != nil {
		fmt.Printf("Prerequisites check failed: aqimport binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// startFeed serves rows synthetic records per period on a random local port
// and returns its base URL.
func startFeed(rows int) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
			_, _ = fmt.Fprintln(w, "Date,Country,City,Specie,count,min,max,median,variance")
			for i := range rows {
				day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i/(len(feedCities)*len(feedSpecies)))
				city := feedCities[i%len(feedCities)]
				specie := feedSpecies[(i/len(feedCities))%len(feedSpecies)]
				_, _ = fmt.Fprintf(w, "%s,EU,%s,%s,24,%d,%d,%d,%.2f\n",
					day.Format("2006-01-02"), city, specie, i%10, 50+i%50, 20+i%30, float64(i%100)/3)
			}
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(listener) }()

	return "http://" + listener.Addr().String() + "/feed", func() { _ = srv.Close() }, nil
}

// runBenchmarks executes the benchmark suite for every feed size
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %d periods, %v timeout, no-store: %d runs, store: %d runs\n",
		len(config.Sizes), len(config.Periods), config.Timeout, config.NoStoreRuns, config.StoreRuns)

	for _, rows := range config.Sizes {
		baseURL, stop, err := startFeed(rows)
		if err != nil {
			fmt.Printf("Failed to start feed for %d rows: %v\n", rows, err)
			continue
		}
		results = append(results, runBenchmarkSuite(config, rows, baseURL))
		stop()
	}

	return results
}

// runBenchmarkSuite runs both no-store and SQLite benchmarks for one feed size
func runBenchmarkSuite(config BenchmarkConfig, rows int, baseURL string) BenchmarkResult {
	fmt.Printf("Benchmarking %d rows per period\n", rows)

	dbDir, err := os.MkdirTemp("", "aqimport-benchmark-*")
	if err != nil {
		fmt.Printf("  Failed to create temp dir: %v\n", err)
		return BenchmarkResult{Rows: rows, NoStoreTime: "ERROR", ColdTime: "ERROR", WarmTime: "ERROR"}
	}
	defer func() { _ = os.RemoveAll(dbDir) }()

	// Helper to run a benchmark phase
	runPhase := func(backend, dbPath string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, baseURL, backend, dbPath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-store runs
	_, noStoreAvg := runPhase("none", "", config.NoStoreRuns, "No-store")

	// Phase 2: SQLite runs against one growing database
	coldTime, warmAvg := runPhase("sqlite", filepath.Join(dbDir, "bench.db"), config.StoreRuns, "SQLite")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Rows:        rows,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes aqimport import multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, baseURL, backend, dbPath string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{"import"}, config.Periods...)
	args = append(args, "--base-url", baseURL, "--token", "bench", "--store-backend", backend, "--color", "no")
	if dbPath != "" {
		args = append(args, "--store-db-connect", dbPath)
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("aqimport", args...)

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Import completed in") &&
		strings.Contains(outputStr, "Store backend")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/aqimport_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"rows", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{strconv.Itoa(result.Rows), result.NoStoreTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %8d rows: No-store: %s, Cold: %s, Warm: %s\n", result.Rows, result.NoStoreTime, result.ColdTime, result.WarmTime)
	}
}
