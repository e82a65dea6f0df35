package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/app"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/inventory/inventorytest"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

const benchKey = "bench-key-12345"

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	mode := flag.String("mode", "list", "Workload: list, providers or churn")
	seed := flag.Int("seed", 200, "Registrations preloaded into the fake inventory")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	// fake inventory with a realistic list size
	inv, invSrv := inventorytest.NewServer(nil)
	defer invSrv.Close()
	gin.SetMode(gin.ReleaseMode)
	for i := 0; i < *seed; i++ {
		inv.Seed(inventorytest.Record{
			ID:       fmt.Sprintf("seed-%d", i),
			Name:     fmt.Sprintf("seed-%d", i),
			Provider: "openai",
			Model:    "gpt-4",
			Status:   "active",
		})
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "bench", APIKeys: []string{benchKey}},
		Inventory: config.InventoryConfig{BaseURL: invSrv.URL, Timeout: 5 * time.Second},
		Catalog:   config.CatalogConfig{TTL: time.Minute},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100000, Burst: 100000},
	}

	fmt.Println("Starting application...")
	a, err := app.Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	srv := &http.Server{Handler: a.Server.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server stopped: %v", err)
		}
	}()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	baseURL := "http://" + ln.Addr().String()
	waitForApp(baseURL + "/health")

	// Signal channel to stop background tasks (monitor, chaos monkey)
	done := make(chan struct{})
	go monitorResources(done)

	targeter, err := newTargeter(*mode, baseURL)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", *mode, *duration, *rate)

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		chaosConcurrency := *rate / 10
		if chaosConcurrency < 5 {
			chaosConcurrency = 5
		}
		if chaosConcurrency > 50 {
			chaosConcurrency = 50
		}
		go startChaosMonkey(baseURL+"/api/models", chaosConcurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Printf("Inventory calls: list=%d create=%d delete=%d\n",
		inv.Requests("GET /model/list"), inv.Requests("POST /model"), inv.Requests("DELETE /model/:id"))
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}
}

// newTargeter builds the request stream for a workload. churn alternates creating a
// registration and deleting the one the inventory assigned to it.
func newTargeter(mode, baseURL string) (vegeta.Targeter, error) {
	header := http.Header{
		"Content-Type":  []string{"application/json"},
		"Authorization": []string{"Bearer " + benchKey},
		"X-User":        []string{"bench"},
	}

	switch mode {
	case "list":
		return func(t *vegeta.Target) error {
			t.Method = http.MethodGet
			t.URL = baseURL + "/api/models"
			t.Header = header
			return nil
		}, nil
	case "providers":
		return func(t *vegeta.Target) error {
			t.Method = http.MethodGet
			t.URL = baseURL + "/api/providers"
			t.Header = header
			return nil
		}, nil
	case "churn":
		var n atomic.Int64
		return func(t *vegeta.Target) error {
			i := n.Add(1)
			t.Header = header
			if i%2 == 1 {
				t.Method = http.MethodPost
				t.URL = baseURL + "/api/models"
				t.Body = []byte(fmt.Sprintf(`{"name": "bench-%d", "provider": "openai", "modelIdentifier": "gpt-4"}`, i))
				return nil
			}
			t.Method = http.MethodDelete
			t.URL = fmt.Sprintf("%s/api/models/inv-%d", baseURL, i/2)
			t.Body = nil
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
				},
			}

			for {
				select {
				case <-done:
					return
				default:
					// Randomly disconnect between 1ms and 200ms
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
					req.Header.Set("Authorization", "Bearer "+benchKey)

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func monitorResources(done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage (runtime) ---")
	fmt.Printf("% -10s % -10s % -10s % -10s\n", "Time", "Heap(MB)", "Alloc(MB)", "Goroutines")

	var ms runtime.MemStats
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			runtime.ReadMemStats(&ms)
			fmt.Printf("% -10s % -10.2f % -10.2f % -10d\n",
				time.Now().Format("15:04:05"),
				float64(ms.HeapInuse)/1024/1024,
				float64(ms.Alloc)/1024/1024,
				runtime.NumGoroutine(),
			)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}
