package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adrianmusante/subtitle-tools/internal/llm"
	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

func TestBulkAdapter_BatchTranslate_ReturnsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := bulkResponse{}
		for _, text := range req.Text {
			resp.Translations = append(resp.Translations, struct {
				Text string `json:"text"`
			}{Text: "translated:" + text})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := &BulkAdapter{BaseURL: srv.URL, APIKey: "k", RetryOptions: llm.RetryOptions{MaxAttempts: 1}}
	out, err := a.BatchTranslate(context.Background(), []string{"hello", "world"}, srt.LanguageGerman, srt.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "translated:hello" || out[1] != "translated:world" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestBulkAdapter_BatchTranslate_ContractViolationOnCardinalityMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bulkResponse{Translations: []struct {
			Text string `json:"text"`
		}{{Text: "only-one"}}})
	}))
	defer srv.Close()

	a := &BulkAdapter{BaseURL: srv.URL, APIKey: "k", RetryOptions: llm.RetryOptions{MaxAttempts: 1}}
	_, err := a.BatchTranslate(context.Background(), []string{"hello", "world"}, srt.LanguageGerman, srt.LanguageEnglish)
	if err == nil {
		t.Fatalf("expected a contract violation error")
	}
	if _, ok := err.(*ErrContractViolation); !ok {
		t.Fatalf("expected *ErrContractViolation, got %T: %v", err, err)
	}
}

func TestBulkAdapter_SupportsLanguage_NoHebrew(t *testing.T) {
	a := &BulkAdapter{}
	if a.SupportsLanguage(srt.LanguageHebrew) {
		t.Fatalf("bulk adapter must not claim Hebrew support")
	}
	if !a.SupportsLanguage(srt.LanguageGerman) {
		t.Fatalf("bulk adapter should support German")
	}
}

func TestBulkAdapter_Translate_SingleItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bulkResponse{Translations: []struct {
			Text string `json:"text"`
		}{{Text: "Hallo"}}})
	}))
	defer srv.Close()

	a := &BulkAdapter{BaseURL: srv.URL, APIKey: "k", RetryOptions: llm.RetryOptions{MaxAttempts: 1}}
	out, err := a.Translate(context.Background(), "Hello", srt.LanguageGerman, srt.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hallo" {
		t.Fatalf("unexpected translation: %q", out)
	}
}
