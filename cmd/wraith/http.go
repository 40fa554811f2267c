package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func postJSON(url string, in, out interface{}, okStatus ...int) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out, okStatus...)
}

func decodeResponse(resp *http.Response, out interface{}, okStatus ...int) error {
	ok := resp.StatusCode == http.StatusOK
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
		}
	}
	if !ok {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// chatViaHTTP posts one turn. Error statuses that still carry a reply body
// (invalid input, store failures) are decoded rather than treated as transport errors.
func chatViaHTTP(serverURL string, req *models.TurnRequest) (*models.TurnResponse, error) {
	var out models.TurnResponse
	err := postJSON(strings.TrimRight(serverURL, "/")+"/api/v1/chat", req, &out,
		http.StatusBadRequest, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusInternalServerError)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func retrieveViaHTTP(serverURL string, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	var out models.RetrieveResponse
	if err := postJSON(strings.TrimRight(serverURL, "/")+"/api/v1/retrieve", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func statusViaHTTP(serverURL string) (*storage.Stats, error) {
	resp, err := httpClient.Get(strings.TrimRight(serverURL, "/") + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	var st storage.Stats
	if err := decodeResponse(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
