package search

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector examines a backend response to determine whether a blocking or
// challenge mechanism was served instead of a result page.
type Detector func(statusCode int, header http.Header, body []byte) (detected bool, source string)

// DefaultDetectors returns the standard list of block detectors, ordered
// from most to least specific.
func DefaultDetectors() []Detector {
	return []Detector{
		detectAnomalyPage,
		detectCloudflare,
		detectRateLimited,
	}
}

// DetectBlock runs the response through the detectors and reports the first
// match.
func DetectBlock(statusCode int, header http.Header, body []byte, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(statusCode, header, body); detected {
			return true, source
		}
	}
	return false, ""
}

// detectAnomalyPage looks for the anomaly/CAPTCHA interstitial DuckDuckGo
// serves when it suspects automated traffic. It can arrive with status 200,
// so the body is checked regardless of status code.
func detectAnomalyPage(statusCode int, header http.Header, body []byte) (bool, string) {
	if bytes.Contains(body, []byte("anomaly-modal")) ||
		bytes.Contains(body, []byte("anomaly_modal")) ||
		bytes.Contains(body, []byte("If this error persists, please let us know")) {
		return true, "DDGAnomaly"
	}
	if bytes.Contains(body, []byte("g-recaptcha")) || bytes.Contains(body, []byte("h-captcha")) {
		return true, "Captcha"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode != http.StatusForbidden && statusCode != http.StatusServiceUnavailable {
		return false, ""
	}

	if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}

	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) ||
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectRateLimited treats an explicit 429 as a block so the failure is
// recorded with a useful source instead of a bare status code.
func detectRateLimited(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusTooManyRequests {
		return true, "RateLimited"
	}
	return false, ""
}
