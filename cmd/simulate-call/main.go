package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Drives a full call session against a running gateway: register, stream a
// few turns, invoke a tool, complete. Useful for smoke-testing a deploy.
func main() {
	baseURL := "http://localhost:8080"
	if url := os.Getenv("API_URL"); url != "" {
		baseURL = url
	}

	sessionID := fmt.Sprintf("SIM-%d", time.Now().Unix())

	fmt.Println("========================================")
	fmt.Printf("Simulating call session: %s\n", sessionID)
	fmt.Println("========================================")
	fmt.Println()

	client := &http.Client{Timeout: 30 * time.Second}

	// Step 1: register the call
	fmt.Println("Step 1: Registering call...")
	created := postJSON(client, baseURL+"/api/calls", "", map[string]interface{}{
		"external_session_id": sessionID,
		"caller_number":       "+15125550142",
	})

	callID, _ := created["call_id"].(string)
	callToken, _ := created["token"].(string)
	if callID == "" || callToken == "" {
		log.Fatalf("Registration did not return call_id and token: %v", created)
	}
	fmt.Printf("✅ Call registered: %s\n\n", callID)

	// Step 2: stream a few turns
	fmt.Println("Step 2: Appending turns...")
	turns := []map[string]interface{}{
		{"type": "turn", "role": "caller", "text": "Hi, I'm looking for a three bedroom in Austin."},
		{"type": "turn", "role": "agent", "text": "Happy to help. What's your budget?"},
		{"type": "turn", "role": "caller", "text": "Around 450 thousand."},
	}
	for _, turn := range turns {
		turn["timestamp"] = time.Now().Format(time.RFC3339)
		res := postJSON(client, baseURL+"/api/calls/"+callID+"/events", callToken, turn)
		fmt.Printf("  appended seq=%v\n", res["seq"])
	}
	fmt.Println()

	// Step 3: run a search tool
	fmt.Println("Step 3: Executing search_properties...")
	tenantID := ""
	if t, ok := created["tenant"].(map[string]interface{}); ok {
		tenantID, _ = t["id"].(string)
	}
	toolRes := postJSON(client, baseURL+"/api/tools/execute", callToken, map[string]interface{}{
		"call_id":   callID,
		"tenant_id": tenantID,
		"tool":      "search_properties",
		"args": map[string]interface{}{
			"city":     "Austin",
			"maxPrice": 475000,
			"beds":     3,
		},
	})
	pretty, _ := json.MarshalIndent(toolRes, "  ", "  ")
	fmt.Printf("  envelope: %s\n\n", pretty)

	// Step 4: complete the call
	fmt.Println("Step 4: Completing call...")
	postJSON(client, baseURL+"/api/calls/"+callID+"/complete", callToken, map[string]interface{}{})
	fmt.Println("✅ Call completed")

	fmt.Println()
	fmt.Println("========================================")
	fmt.Printf("✅ Done! Inspect with: go run cmd/check-call/main.go %s\n", callID)
	fmt.Println("========================================")
}

func postJSON(client *http.Client, url, bearer string, payload map[string]interface{}) map[string]interface{} {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Failed to marshal payload: %v", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(data))
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		log.Fatalf("%s returned %d: %s", url, resp.StatusCode, string(body))
	}

	var result map[string]interface{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			log.Fatalf("Failed to parse response from %s: %v\nResponse: %s", url, err, string(body))
		}
	}
	return result
}
