package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nulzo/model-registry/internal/proxyclient"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store"
)

// fixtures covers each provider kind once so a fresh environment renders every label.
var fixtures = []registry.CreateInput{
	{Name: "Production GPT-4", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4"},
	{Name: "Staging GPT-4o", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4o", Status: registry.StatusInactive},
	{Name: "Testing Claude", Provider: registry.ProviderAnthropic, ModelIdentifier: "claude-3-sonnet"},
	{Name: "Edge Gateway", Provider: registry.ProviderCustom, APIURL: "https://edge.example.com/v1"},
}

func main() {
	server := flag.String("server", envOr("REGISTRY_SERVER", "http://localhost:8080"), "Registry server base URL")
	apiKey := flag.String("api-key", os.Getenv("REGISTRY_API_KEY"), "Registry API key")
	flag.Parse()

	client, err := proxyclient.New(*server, *apiKey, nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = context.WithValue(ctx, store.ContextKeyUser, "seed")

	existing, err := client.ListRegistrations(ctx)
	if err != nil {
		log.Fatalf("list registrations: %s", registry.Message(err))
	}
	taken := make(map[string]bool, len(existing))
	for _, m := range existing {
		taken[m.Name] = true
	}

	for _, in := range fixtures {
		if taken[in.Name] {
			fmt.Printf("Skipping %q, already registered\n", in.Name)
			continue
		}
		m, err := client.CreateRegistration(ctx, in)
		if err != nil {
			log.Printf("Could not register %q: %s", in.Name, registry.Message(err))
			continue
		}
		fmt.Printf("Created Registration: %s (%s)\n", m.ID, m.Name)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
