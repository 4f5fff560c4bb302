package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/exp/slog"
)

const (
	fetchTimeout  = 10 * time.Second
	testTimeout   = 5 * time.Second
	maxPerSource  = 50
	maxTest       = 20
	maxWorking    = 5
	defaultTestTo = "https://www.google.com"
)

var addrRE = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d+$`)

// source is one public proxy list: where to get it and how to turn the
// response into host:port candidates.
type source struct {
	url   string
	parse func(data []byte) ([]string, error)
}

var defaultSources = []source{
	{url: "https://www.proxy-list.download/api/v1/get?type=http", parse: parsePlainList},
	{url: "https://free-proxy-list.net/", parse: parseFreeProxyPage},
	{url: "https://proxylist.geonode.com/api/proxy-list?limit=50&page=1&sort_by=lastChecked&sort_type=desc", parse: parseGeonode},
}

// Manager scrapes public proxy lists, tests which entries actually work and
// hands out an http client routed through a random working one. It is an
// optional transport strategy for caption fetching, nothing else depends
// on it.
type Manager struct {
	client  *http.Client
	testURL string
	sources []source
	check   func(ctx context.Context, addr string) bool
	working []string
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	m := &Manager{
		client:  &http.Client{Timeout: fetchTimeout},
		testURL: defaultTestTo,
		sources: defaultSources,
		logger:  logger,
	}
	m.check = m.test

	return m
}

// Refresh refetches the proxy lists and keeps the entries that pass the
// reachability test. At most maxTest candidates are tried and testing stops
// once maxWorking proxies were found, a refresh never stalls the rest of the
// run. It returns the number of working proxies.
func (m *Manager) Refresh(ctx context.Context) (int, error) {
	candidates := m.fetchAll(ctx)
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no proxy candidates found")
	}
	if len(candidates) > maxTest {
		candidates = candidates[:maxTest]
	}
	m.logger.Info("testing proxy candidates", slog.Int("count", len(candidates)))

	m.working = m.working[:0]
	for _, addr := range candidates {
		if m.check(ctx, addr) {
			m.working = append(m.working, addr)
			if len(m.working) == maxWorking {
				break
			}
		}
	}
	if len(m.working) == 0 {
		return 0, fmt.Errorf("no working proxies")
	}

	return len(m.working), nil
}

// Client returns an http client that routes through a randomly picked
// working proxy, or nil when none is available.
func (m *Manager) Client() *http.Client {
	if len(m.working) == 0 {
		return nil
	}
	addr := m.working[rand.Intn(len(m.working))]
	proxyURL, err := url.Parse("http://" + addr)
	if err != nil {
		return nil
	}

	return &http.Client{
		Timeout:   fetchTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
}

func (m *Manager) fetchAll(ctx context.Context) []string {
	seen := map[string]bool{}
	candidates := []string{}
	for _, src := range m.sources {
		addrs, err := m.fetchFrom(ctx, src.url, src.parse)
		if err != nil {
			m.logger.Info("proxy source failed", slog.String("source", src.url),
				slog.String("error", err.Error()))
			continue
		}
		kept := 0
		for _, addr := range addrs {
			if kept == maxPerSource {
				break
			}
			if !seen[addr] && addrRE.MatchString(addr) {
				seen[addr] = true
				candidates = append(candidates, addr)
				kept++
			}
		}
	}

	return candidates
}

func (m *Manager) fetchFrom(ctx context.Context, rawURL string, parse func([]byte) ([]string, error)) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proxy list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy source returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	return parse(data)
}

// parsePlainList handles the ip:port-per-line format.
func parsePlainList(data []byte) ([]string, error) {
	addrs := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			addrs = append(addrs, line)
		}
	}

	return addrs, nil
}

// parseFreeProxyPage scrapes the html table on free-proxy-list.net.
func parseFreeProxyPage(data []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy list page: %w", err)
	}

	return parseFreeProxyList(doc), nil
}

func parseFreeProxyList(doc *goquery.Document) []string {
	addrs := []string{}
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if ip != "" && port != "" {
			addrs = append(addrs, ip+":"+port)
		}

		return len(addrs) < maxPerSource
	})

	return addrs
}

// parseGeonode handles the json api, the backup source.
func parseGeonode(data []byte) ([]string, error) {
	var payload struct {
		Data []struct {
			IP   string `json:"ip"`
			Port string `json:"port"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse geonode response: %w", err)
	}

	addrs := []string{}
	for _, item := range payload.Data {
		if item.IP != "" && item.Port != "" {
			addrs = append(addrs, item.IP+":"+item.Port)
		}
	}

	return addrs, nil
}

func (m *Manager) test(ctx context.Context, addr string) bool {
	proxyURL, err := url.Parse("http://" + addr)
	if err != nil {
		return false
	}
	client := &http.Client{
		Timeout:   testTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.testURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
