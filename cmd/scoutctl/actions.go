package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"scoutd/pkg/types"
)

type clientConfig struct {
	Addr string
}

func (c *clientConfig) base() string { return strings.TrimRight(c.Addr, "/") }

var httpClient = &http.Client{Timeout: 0}

// fnClassify streams NDJSON progress events from /catalog/classify to stdout.
func fnClassify(cfg *clientConfig, maxCandidates, concurrency int) error {
	q := url.Values{}
	if maxCandidates > 0 {
		q.Set("max_candidates", strconv.Itoa(maxCandidates))
	}
	if concurrency > 0 {
		q.Set("concurrency", strconv.Itoa(concurrency))
	}
	u := cfg.base() + "/catalog/classify"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev types.ProgressEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Println(string(line))
			continue
		}
		printEvent(ev)
	}
	return sc.Err()
}

func printEvent(ev types.ProgressEvent) {
	switch ev.Type {
	case types.EventListingComplete:
		fmt.Printf("listing complete: %d models\n", ev.TotalFound)
	case types.EventPrefiltered:
		fmt.Printf("prefiltered: %d candidates\n", ev.SurvivorCount)
	case types.EventCandidateClassified:
		if ev.Classification != nil {
			c := ev.Classification
			fmt.Printf("  %-50s %-14s %s\n", c.Identifier, c.Classification, c.Confidence)
		}
	case types.EventCandidateFailed:
		fmt.Printf("  %-50s error: %s\n", ev.Identifier, ev.Message)
	case types.EventDone:
		if ev.Meta != nil {
			fmt.Printf("done: %d classified, %d errors, %dms", len(ev.Models), len(ev.Meta.Errors), ev.Meta.DurationMS)
			if ev.Meta.RateLimited {
				fmt.Print(" (rate limited)")
			}
			if ev.Meta.Cancelled {
				fmt.Print(" (cancelled)")
			}
			fmt.Println()
		}
	case types.EventFailed:
		fmt.Printf("run failed: %s\n", ev.Message)
	}
}

func fnModels(cfg *clientConfig) error {
	resp, err := httpClient.Get(cfg.base() + "/models")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	var out types.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(out.Models) == 0 {
		fmt.Println("no classified models; run `scoutctl classify` first")
		return nil
	}
	for _, m := range out.Models {
		fmt.Printf("%-50s %-14s %-8s %s\n", m.Identifier, m.Classification, m.Confidence, m.ModelType)
	}
	return nil
}

func fnStatus(cfg *clientConfig) error {
	resp, err := httpClient.Get(cfg.base() + "/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	var st types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("uptime: %s  classify running: %v\n", (time.Duration(st.UptimeSeconds) * time.Second).String(), st.ClassifyRunning)
	if st.LastRun != nil {
		fmt.Printf("last run %s: fetched=%d filtered=%d errors=%d\n", st.LastRun.RunID, st.LastRun.Fetched, st.LastRun.Filtered, len(st.LastRun.Errors))
	}
	for _, h := range st.Handles {
		fmt.Printf("handle %-50s backend=%s device=%s inflight=%d\n", h.ModelID, h.Backend, h.Device, h.Inflight)
	}
	return nil
}

// fnInfer streams generated tokens to stdout as they arrive.
func fnInfer(cfg *clientConfig, model, prompt string, maxTokens int) error {
	body, err := json.Marshal(types.InferRequest{Model: model, Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(cfg.base()+"/infer", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var chunk struct {
			Token   string `json:"token"`
			Done    bool   `json:"done"`
			Backend string `json:"backend"`
			Device  string `json:"device"`
		}
		if err := json.Unmarshal(sc.Bytes(), &chunk); err != nil {
			continue
		}
		if chunk.Done {
			fmt.Fprintf(os.Stderr, "\n[%s/%s]\n", chunk.Backend, chunk.Device)
			break
		}
		fmt.Print(chunk.Token)
	}
	return sc.Err()
}

func fnHealth(cfg *clientConfig) error {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := httpClient.Get(cfg.base() + path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		fmt.Printf("%s: %s\n", path, resp.Status)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr types.ErrorResponse
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
	}
	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
}
