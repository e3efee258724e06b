package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

var (
	userToken   = os.Getenv("TEST_USER_TOKEN")
	adminToken  = os.Getenv("TEST_ADMIN_TOKEN")
	internalKey = os.Getenv("INTERNAL_API_KEY")
	testUserId  = os.Getenv("TEST_USER_ID")
)

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, headers map[string]string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(name string) {
	color.Cyan("\n=== %s ===", name)
}

func report(resp *http.Response, body []byte, err error) {
	if err != nil {
		color.Red("FAIL: %v", err)
		return
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		color.Green("OK (%d)", resp.StatusCode)
	} else {
		color.Red("FAIL (%d)", resp.StatusCode)
	}
	var parsed map[string]interface{}
	if json.Unmarshal(body, &parsed) == nil {
		prettyPrint(parsed)
	} else {
		fmt.Println(string(body))
	}
}

func main() {
	color.Yellow("Billing API smoke test against %s", baseURL)

	step("List credit packs (public)")
	resp, body, err := sendRequest("GET", "/credits/packs", "", nil, nil)
	report(resp, body, err)

	step("Get balance (user)")
	resp, body, err = sendRequest("GET", "/credits/balance", userToken, nil, nil)
	report(resp, body, err)

	step("Report usage (internal)")
	resp, body, err = sendRequest("POST", "/internal/usage", "", map[string]string{
		"X-Internal-Api-Key": internalKey,
	}, map[string]interface{}{
		"user_id":                 testUserId,
		"model_id":                "gpt-4o-mini",
		"prompt_tokens":           1000,
		"completion_tokens":       500,
		"cost_per_million_input":  "2.00",
		"cost_per_million_output": "6.00",
	})
	report(resp, body, err)

	step("Get history (user)")
	resp, body, err = sendRequest("GET", "/credits/history?page=1&limit=5", userToken, nil, nil)
	report(resp, body, err)

	step("Admin promotional grant")
	resp, body, err = sendRequest("POST", "/admin/credits/adjust", adminToken, nil, map[string]interface{}{
		"user_id":          testUserId,
		"transaction_type": "promotional",
		"amount":           "1.00000000",
		"description":      "smoke test grant",
	})
	report(resp, body, err)

	step("Checkout (user)")
	resp, body, err = sendRequest("POST", "/credits/checkout", userToken, nil, map[string]interface{}{
		"pack_slug": "starter",
	})
	report(resp, body, err)

	color.Yellow("\nDone.")
}
