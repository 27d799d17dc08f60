package search

import (
	"net/http"
	"testing"
)

func TestDetectBlock_AnomalyPageWith200(t *testing.T) {
	body := []byte(`<html><body><div class="anomaly-modal">Unfortunately, bots use DuckDuckGo too.</div></body></html>`)

	blocked, source := DetectBlock(http.StatusOK, http.Header{}, body, DefaultDetectors())
	if !blocked {
		t.Fatal("expected anomaly page to be detected even with status 200")
	}
	if source != "DDGAnomaly" {
		t.Errorf("expected source DDGAnomaly, got %q", source)
	}
}

func TestDetectBlock_Captcha(t *testing.T) {
	body := []byte(`<form class="g-recaptcha" data-sitekey="x"></form>`)

	blocked, source := DetectBlock(http.StatusOK, http.Header{}, body, DefaultDetectors())
	if !blocked || source != "Captcha" {
		t.Errorf("expected Captcha detection, got blocked=%v source=%q", blocked, source)
	}
}

func TestDetectBlock_CloudflareHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "cloudflare")

	blocked, source := DetectBlock(http.StatusForbidden, h, nil, DefaultDetectors())
	if !blocked || source != "Cloudflare" {
		t.Errorf("expected Cloudflare detection, got blocked=%v source=%q", blocked, source)
	}
}

func TestDetectBlock_CloudflareBodyOn503(t *testing.T) {
	body := []byte(`<html>cf-turnstile challenge</html>`)

	blocked, source := DetectBlock(http.StatusServiceUnavailable, http.Header{}, body, DefaultDetectors())
	if !blocked || source != "Cloudflare" {
		t.Errorf("expected Cloudflare detection, got blocked=%v source=%q", blocked, source)
	}
}

func TestDetectBlock_RateLimited(t *testing.T) {
	blocked, source := DetectBlock(http.StatusTooManyRequests, http.Header{}, nil, DefaultDetectors())
	if !blocked || source != "RateLimited" {
		t.Errorf("expected RateLimited detection, got blocked=%v source=%q", blocked, source)
	}
}

func TestDetectBlock_CleanResponse(t *testing.T) {
	body := []byte(`<html><div id="links" class="results"></div></html>`)

	blocked, source := DetectBlock(http.StatusOK, http.Header{}, body, DefaultDetectors())
	if blocked {
		t.Errorf("expected no detection for clean page, got source %q", source)
	}
}

func TestDetectBlock_Plain403NotCloudflare(t *testing.T) {
	blocked, _ := DetectBlock(http.StatusForbidden, http.Header{}, []byte("denied"), DefaultDetectors())
	if blocked {
		t.Error("bare 403 without signatures should not be attributed to a block source")
	}
}
