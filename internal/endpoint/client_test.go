package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oukeidos/mdtrans/internal/apperrors"
)

type capturedRequest struct {
	header http.Header
	body   Request
}

func newTestServer(t *testing.T, path string, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, captured
}

func TestTranslate_Envelope(t *testing.T) {
	server, captured := newTestServer(t, "/translate", http.StatusOK, `{"code":200,"data":"你好"}`)
	client, err := NewClient(Config{URL: server.URL + "/translate", SourceLang: "en", TargetLang: "zh"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	got, err := client.Translate(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "你好" {
		t.Fatalf("Translate() = %q", got)
	}
	want := Request{Text: "Hello", SourceLang: "en", TargetLang: "zh"}
	if captured.body != want {
		t.Fatalf("request body = %+v, want %+v", captured.body, want)
	}
	if captured.header.Get("Accept") != "application/json" {
		t.Fatalf("unexpected Accept header %q", captured.header.Get("Accept"))
	}
	if captured.header.Get("Authorization") != "" {
		t.Fatalf("no Authorization header expected without a token")
	}
}

func TestTranslate_DpTransHeadersAndToken(t *testing.T) {
	server, captured := newTestServer(t, "/dptrans", http.StatusOK, `{"translated_text":"Bonjour"}`)
	client, err := NewClient(Config{URL: server.URL + "/dptrans", TargetLang: "fr", Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Family() != FamilyDpTrans {
		t.Fatalf("expected dptrans family, got %s", client.Family())
	}

	got, err := client.Translate(context.Background(), "Hello")
	if err != nil || got != "Bonjour" {
		t.Fatalf("Translate() = %q, %v", got, err)
	}
	if captured.body.SourceLang != "auto" {
		t.Fatalf("expected source_lang auto, got %q", captured.body.SourceLang)
	}
	if captured.header.Get("Accept") != dptransAccept {
		t.Fatalf("unexpected Accept header %q", captured.header.Get("Accept"))
	}
	if captured.header.Get("User-Agent") != dptransUserAgent {
		t.Fatalf("unexpected User-Agent header %q", captured.header.Get("User-Agent"))
	}
	if captured.header.Get("Authorization") != "Bearer secret" {
		t.Fatalf("unexpected Authorization header %q", captured.header.Get("Authorization"))
	}
}

func TestTranslate_HTTPErrorStatus(t *testing.T) {
	server, _ := newTestServer(t, "/translate", http.StatusServiceUnavailable, "overloaded")
	client, _ := NewClient(Config{URL: server.URL + "/translate", TargetLang: "zh"})

	_, err := client.Translate(context.Background(), "Hello")
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindAPI {
		t.Fatalf("expected api error, got %v", err)
	}
	if code, _ := apperrors.CodeOf(err); code != http.StatusServiceUnavailable {
		t.Fatalf("expected code 503, got %d", code)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}
}

func TestTranslate_TooManyRequestsStaysRetryable(t *testing.T) {
	server, _ := newTestServer(t, "/translate", http.StatusTooManyRequests, "slow down")
	client, _ := NewClient(Config{URL: server.URL + "/translate", TargetLang: "zh"})

	_, err := client.Translate(context.Background(), "Hello")
	if code, ok := apperrors.CodeOf(err); !ok || code != http.StatusTooManyRequests {
		t.Fatalf("expected api error with code 429, got %v", err)
	}
	if apperrors.IsRateLimit(err) || !apperrors.IsRetryable(err) {
		t.Fatalf("a 429 response must be a retryable api error, got %v", err)
	}
}

func TestTranslate_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, _ := NewClient(Config{URL: url, TargetLang: "zh"})
	_, err := client.Translate(context.Background(), "Hello")
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTranslate_CanceledContext(t *testing.T) {
	server, _ := newTestServer(t, "/translate", http.StatusOK, `{"code":200,"data":"x"}`)
	client, _ := NewClient(Config{URL: server.URL + "/translate", TargetLang: "zh"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Translate(ctx, "Hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     string
		wantKind apperrors.Kind
		wantCode int
	}{
		{name: "EnvelopeOK", body: `{"code":200,"data":"ok","id":1}`, want: "ok"},
		{name: "EnvelopeErrorCode", body: `{"code":429,"data":""}`, wantKind: apperrors.KindAPI, wantCode: 429},
		{name: "EnvelopeEmptyData", body: `{"code":200,"data":""}`, wantKind: apperrors.KindParse},
		{name: "TranslatedText", body: `{"translated_text":"a","result":"b"}`, want: "a"},
		{name: "Result", body: `{"result":"b"}`, want: "b"},
		{name: "Translation", body: `{"translation":"c"}`, want: "c"},
		{name: "DataWithoutCode", body: `{"data":"d"}`, want: "d"},
		{name: "NonStringDataSkipsEnvelope", body: `{"code":200,"data":{"x":1},"result":"r"}`, want: "r"},
		{name: "JSONWithoutField", body: `{"message":"nope"}`, wantKind: apperrors.KindParse},
		{name: "BrokenJSON", body: `{"translated_text":`, wantKind: apperrors.KindParse},
		{name: "PlainText", body: "plain translation\n", want: "plain translation\n"},
		{name: "Empty", body: "  \n", wantKind: apperrors.KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			if tt.wantKind == "" {
				if err != nil || got != tt.want {
					t.Fatalf("Decode() = %q, %v; want %q", got, err, tt.want)
				}
				return
			}
			kind, ok := apperrors.KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Fatalf("Decode() error = %v, want kind %s", err, tt.wantKind)
			}
			if tt.wantCode != 0 {
				if code, _ := apperrors.CodeOf(err); code != tt.wantCode {
					t.Fatalf("code = %d, want %d", code, tt.wantCode)
				}
			}
		})
	}
}

func TestNewClient_Validation(t *testing.T) {
	bad := []Config{
		{URL: "ftp://example.com", TargetLang: "zh"},
		{URL: "http://", TargetLang: "zh"},
		{URL: "://bad", TargetLang: "zh"},
		{URL: "http://localhost:1188/translate"},
	}
	for _, cfg := range bad {
		if _, err := NewClient(cfg); err == nil {
			t.Fatalf("expected %+v to be rejected", cfg)
		}
	}
}

func TestDetectFamily(t *testing.T) {
	if DetectFamily("https://api.example.com/DPTrans/v1") != FamilyDpTrans {
		t.Fatalf("expected dptrans family")
	}
	if DetectFamily("http://localhost:1188/translate") != FamilyDeepLX {
		t.Fatalf("expected deeplx family")
	}
}
