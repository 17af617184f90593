package scrape

import (
	"net/http"
	"strings"
)

// BlockType is the kind of anti-bot wall detected on a response.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

var challengeMarkers = []string{
	"checking your browser",
	"cf-browser-verification",
	"just a moment...",
	"attention required",
}

// DetectBlock inspects a response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("Cf-Ray") != "" || strings.EqualFold(resp.Header.Get("Server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return BlockCloudflare
		}
	}
	if strings.Contains(lower, "captcha") {
		return BlockCaptcha
	}
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}
