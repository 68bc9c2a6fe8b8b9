// Command shadow_compare replays read-only API calls against both this
// service and the legacy FastAPI backend it replaces, and reports response
// drift. Volatile fields (ids, timestamps, cache metadata) are masked before
// comparison.
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
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type endpointsFile struct {
	Endpoints []endpoint `json:"endpoints"`
}

type result struct {
	Endpoint     endpoint
	AtlasStatus  int
	LegacyStatus int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
	AtlasTime    time.Duration
	LegacyTime   time.Duration
}

// Fields masked before diffing: regenerated per environment or per request.
var volatileKeys = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
	"village_id": {},
	"cached":     {},
}

func main() {
	var (
		atlasBase  string
		legacyBase string
		listPath   string
		timeout    time.Duration
	)
	flag.StringVar(&atlasBase, "atlas-base", "http://localhost:8080", "Atlas API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:8000", "Legacy FastAPI base URL")
	flag.StringVar(&listPath, "endpoints", filepath.Join("scripts", "shadow_compare", "endpoints.json"), "Path to endpoint list")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	endpoints, err := loadEndpoints(listPath)
	if err != nil {
		log.Fatalf("failed to load endpoints: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var breaking, drift int
	results := make([]result, 0, len(endpoints))
	for _, ep := range endpoints {
		res := compare(client, atlasBase, legacyBase, ep)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if ep.Critical {
				breaking++
			} else {
				drift++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking diffs: %d, non-critical drift: %d\n", breaking, drift)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadEndpoints(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file endpointsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints defined in %s", path)
	}
	return file.Endpoints, nil
}

func compare(client *http.Client, atlasBase, legacyBase string, ep endpoint) result {
	res := result{Endpoint: ep}

	atlasBody, atlasStatus, atlasDur, err := fetch(client, atlasBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("atlas request failed: %w", err)
		return res
	}
	legacyBody, legacyStatus, legacyDur, err := fetch(client, legacyBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.AtlasStatus = atlasStatus
	res.LegacyStatus = legacyStatus
	res.AtlasTime = atlasDur
	res.LegacyTime = legacyDur
	res.StatusMatch = atlasStatus == legacyStatus
	res.BodyMatch = bodiesEquivalent(atlasBody, legacyBody)
	return res
}

func fetch(client *http.Client, base string, ep endpoint) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ep.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEquivalent(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	// The atlas wraps payloads in {"data": ...}; the legacy API returns them
	// bare. Unwrap before masking so like compares with like.
	aj = unwrapEnvelope(aj)
	bj = unwrapEnvelope(bj)
	mask(&aj)
	mask(&bj)
	return reflect.DeepEqual(aj, bj)
}

func unwrapEnvelope(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if data, ok := m["data"]; ok && len(m) <= 2 {
			return data
		}
	}
	return v
}

func mask(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, volatile := volatileKeys[k]; volatile {
				val[k] = "<masked>"
				continue
			}
			mask(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			mask(&v2)
			val[i] = v2
		}
	}
}

func printReport(results []result) {
	fmt.Println("endpoint                                 status  body    atlas      legacy")
	for _, res := range results {
		label := fmt.Sprintf("%s %s", res.Endpoint.Method, res.Endpoint.Path)
		if res.Err != nil {
			fmt.Printf("%-40s ERROR: %v\n", label, res.Err)
			continue
		}
		fmt.Printf("%-40s %-7v %-7v %-10s %s\n",
			label, res.StatusMatch, res.BodyMatch, res.AtlasTime.Round(time.Millisecond), res.LegacyTime.Round(time.Millisecond))
	}
}
