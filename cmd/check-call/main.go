package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: go run cmd/check-call/main.go <call_id>")
	}

	callID := os.Args[1]

	baseURL := "http://localhost:8080"
	if url := os.Getenv("API_URL"); url != "" {
		baseURL = url
	}

	fmt.Println("========================================")
	fmt.Printf("Checking Call: %s\n", callID)
	fmt.Println("========================================")
	fmt.Println()

	client := &http.Client{Timeout: 30 * time.Second}

	url := baseURL + "/api/calls/" + callID
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	fmt.Printf("URL: %s\n", url)
	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("❌ Failed to get call (Status: %d)\n", resp.StatusCode)
		fmt.Println("Response:", string(body))
		return
	}

	var detail struct {
		Call     map[string]interface{}   `json:"call"`
		Timeline []map[string]interface{} `json:"timeline"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		fmt.Println("Response:", string(body))
		return
	}

	fmt.Println("✅ Call Details:")
	fmt.Println("----------------------------------------")
	for key, value := range detail.Call {
		fmt.Printf("%s: %v\n", key, value)
	}

	fmt.Println()
	fmt.Printf("Timeline (%d events):\n", len(detail.Timeline))
	fmt.Println("----------------------------------------")
	for _, e := range detail.Timeline {
		switch e["type"] {
		case "turn":
			fmt.Printf("[%v] %v: %v\n", e["seq"], e["role"], e["text"])
		default:
			fmt.Printf("[%v] %v (%v)\n", e["seq"], e["type"], e["tool"])
		}
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("✅ Complete!")
	fmt.Println("========================================")
}
