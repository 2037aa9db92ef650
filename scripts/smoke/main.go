// Command smoke probes a running instance: health, readiness, login and a
// dry-run conflict check. Exit code 1 on any failed probe.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type probe struct {
	Name   string
	Method string
	Path   string
	Body   interface{}
	Expect int
	Auth   bool
}

func main() {
	var (
		base     string
		email    string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", "", "login email for authenticated probes")
	flag.StringVar(&password, "password", "", "login password for authenticated probes")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	probes := []probe{
		{Name: "health", Method: http.MethodGet, Path: "/health", Expect: http.StatusOK},
		{Name: "ready", Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK},
	}

	var token string
	if email != "" {
		var err error
		token, err = login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		probes = append(probes, probe{
			Name:   "conflict check",
			Method: http.MethodPost,
			Path:   "/api/v1/schedules/check",
			Body: map[string]interface{}{
				"day_of_week": "MONDAY",
				"start_time":  "09:00",
				"end_time":    "10:00",
			},
			Expect: http.StatusOK,
			Auth:   true,
		})
	}

	failed := 0
	for _, p := range probes {
		if err := run(client, base, token, p); err != nil {
			failed++
			fmt.Printf("FAIL  %-16s %v\n", p.Name, err)
			continue
		}
		fmt.Printf("OK    %s\n", p.Name)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base, token string, p probe) error {
	var body io.Reader
	if p.Body != nil {
		raw, err := json.Marshal(p.Body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(p.Method, base+p.Path, body)
	if err != nil {
		return err
	}
	if p.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != p.Expect {
		return fmt.Errorf("expected status %d, got %d", p.Expect, resp.StatusCode)
	}
	return nil
}
