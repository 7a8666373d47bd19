package infrastructure

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/ytdesk/internal/domain"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseNetscapeCookies parses a Netscape cookies.txt file as exported by browsers.
// Format: domain flag path secure expiration name value.
// Session cookies (expiration 0) come back with a zero Expires.
func ParseNetscapeCookies(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			httpOnly = true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		cookie := &http.Cookie{
			Domain:   parts[0],
			Path:     parts[2],
			Secure:   strings.EqualFold(parts[3], "TRUE"),
			Name:     parts[5],
			Value:    parts[6],
			HttpOnly: httpOnly,
		}
		if expires, err := strconv.ParseInt(parts[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}

	return cookies, scanner.Err()
}

// InspectCookies summarizes cookies relative to now
func InspectCookies(path string, cookies []*http.Cookie, now time.Time) *domain.CookieReport {
	report := &domain.CookieReport{Path: path, Domains: []string{}}
	seen := make(map[string]bool)

	for _, c := range cookies {
		report.Total++

		d := strings.TrimPrefix(c.Domain, ".")
		if !seen[d] {
			seen[d] = true
			report.Domains = append(report.Domains, d)
		}

		if c.Expires.IsZero() {
			report.SessionOnly++
			continue
		}
		if !c.Expires.After(now) {
			report.Expired++
		}
		if unix := c.Expires.Unix(); report.EarliestUnix == 0 || unix < report.EarliestUnix {
			report.EarliestUnix = unix
		}
	}

	sort.Strings(report.Domains)
	return report
}

// InspectCookieFile reads and summarizes a cookies.txt file
func InspectCookieFile(path string, now time.Time) (*domain.CookieReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer file.Close()

	cookies, err := ParseNetscapeCookies(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cookie file: %w", err)
	}
	return InspectCookies(path, cookies, now), nil
}
