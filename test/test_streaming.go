// Manual smoke client for the chat endpoint: fetch a session token, submit
// one turn and print the streamed reply chunk by chunk. Run it against a
// local server: go run ./test
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

type TokenResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func main() {
	fmt.Println("Starting chat streaming test...")

	token, err := getSessionToken()
	if err != nil {
		log.Fatalf("Failed to get session token: %v", err)
	}
	fmt.Printf("Session token obtained: %s...\n", token[:20])

	if err := streamChatTurn(token); err != nil {
		log.Fatalf("Failed to stream chat: %v", err)
	}

	fmt.Println("Chat streaming test completed successfully!")
}

func getSessionToken() (string, error) {
	req, err := http.NewRequest("POST", baseURL+"/api/v1/auth/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("auth failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %v", err)
	}
	return tr.Token, nil
}

func streamChatTurn(token string) error {
	payload := map[string]interface{}{
		"currentPath": "/templates/luxury",
		"messages": []map[string]string{
			{"role": "user", "content": "I need an online store for my fashion brand"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequest("POST", baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	fmt.Println("Submitting chat turn...")

	startTime := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	fmt.Printf("Response status: %d (request id %s)\n", resp.StatusCode, resp.Header.Get("X-Request-Id"))

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			fmt.Printf("chunk: %q\n", string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read stream: %v", err)
		}
	}

	fmt.Printf("Stream finished in %v\n", time.Since(startTime))
	return nil
}
