package generation_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func TestEnvConfig_Defaults(t *testing.T) {
	var cfg generation.EnvConfig
	if err := envstruct.Populate(&cfg, func(string) (string, bool) { return "", false }); err != nil {
		t.Fatal(err)
	}
	want := generation.EnvConfig{
		APIKey:         "",
		BaseURL:        "",
		Model:          "gpt-4o-mini",
		MaxRetries:     3,
		RetryBackoff:   time.Second,
		RequestTimeout: time.Minute,
		MaxTokens:      4000,
		Temperature:    0,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("EnvConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvConfig_NewService(t *testing.T) {
	server, requests := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	})
	env := map[string]string{
		"OPENAI_API_KEY":          "sk-test",
		"FITPLAN_OPENAI_BASE_URL": server.URL + "/v1/",
		"FITPLAN_RETRY_BACKOFF":   "1ms",
	}
	var cfg generation.EnvConfig
	if err := envstruct.Populate(&cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err != nil {
		t.Fatal(err)
	}
	svc := cfg.NewService(testhelpers.NewLogger(testhelpers.NewWriter(t)))

	for range 2 {
		p, err := svc.Send(t.Context(), testRequest)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if !p.Has("workout_plan") {
			t.Errorf("payload = %v, want a workout_plan section", p)
		}
	}
	// The second send is answered from the cache.
	if got := requests.Load(); got != 1 {
		t.Errorf("server got %d requests, want 1", got)
	}
}
