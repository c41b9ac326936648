package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/amocrm"
)

// Manual smoke check for the amoCRM integration: reads a lead and appends
// a note to its timeline. Run with a real lead id: go run ./sample/test-amocrm-integration <lead_id>
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env not found, using system environment variables")
	}

	domain := os.Getenv("AMOCRM_DOMAIN")
	token := os.Getenv("AMOCRM_ACCESS_TOKEN")
	if domain == "" || token == "" {
		log.Fatal("❌ AMOCRM_DOMAIN and AMOCRM_ACCESS_TOKEN must be configured")
	}
	if len(os.Args) < 2 {
		log.Fatal("usage: test-amocrm-integration <lead_id>")
	}
	leadID := os.Args[1]

	client := amocrm.NewClient(domain, token)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("🔄 Fetching lead %s from %s...\n", leadID, domain)
	lead, err := client.GetLead(ctx, leadID)
	if err != nil {
		log.Fatalf("❌ GetLead failed: %v", err)
	}

	fmt.Printf("📋 Lead:\n")
	fmt.Printf("   Name: %s\n", lead.Name)
	fmt.Printf("   Price: %d\n", lead.Price)
	fmt.Printf("   Pipeline: %d, status: %d\n", lead.PipelineID, lead.StatusID)
	fmt.Printf("   Tags: %v\n\n", lead.Tags)

	note := fmt.Sprintf("Интеграционная проверка: %s", time.Now().Format(time.RFC3339))
	if err := client.AddNote(ctx, leadID, note); err != nil {
		log.Fatalf("❌ AddNote failed: %v", err)
	}

	fmt.Printf("✅ Note added to lead %s\n", leadID)
	fmt.Printf("   Link: https://%s/leads/detail/%s\n", domain, leadID)
}
