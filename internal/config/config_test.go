package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKeys(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api-keys.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validKeys = `[
  {"llmApiName": "LLM small", "authorization": "Bearer s", "tokenId": "sid", "tokenKey": "skey"},
  {"llmApiName": "LLM large", "authorization": "Bearer l", "tokenId": "lid", "tokenKey": "lkey"},
  {"llmApiName": "LLM embedings", "authorization": "Bearer e", "tokenId": "eid", "tokenKey": "ekey"}
]`

func TestLoadCredentials(t *testing.T) {
	creds, err := LoadCredentials(writeKeys(t, validKeys))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Small.TokenID != "sid" {
		t.Errorf("small token id = %q", creds.Small.TokenID)
	}
	if creds.Large.Authorization != "Bearer l" {
		t.Errorf("large authorization = %q", creds.Large.Authorization)
	}
	if creds.Embedding.TokenKey != "ekey" {
		t.Errorf("embedding token key = %q", creds.Embedding.TokenKey)
	}
}

func TestLoadCredentialsMissingEntry(t *testing.T) {
	path := writeKeys(t, `[{"llmApiName": "LLM small", "authorization": "a", "tokenId": "b", "tokenKey": "c"}]`)
	if _, err := LoadCredentials(path); err == nil {
		t.Fatal("expected error for missing entries")
	}
}

func TestLoadCredentialsIncompleteEntry(t *testing.T) {
	path := writeKeys(t, `[
	  {"llmApiName": "LLM small", "authorization": "a", "tokenId": "", "tokenKey": "c"},
	  {"llmApiName": "LLM large", "authorization": "a", "tokenId": "b", "tokenKey": "c"},
	  {"llmApiName": "LLM embedings", "authorization": "a", "tokenId": "b", "tokenKey": "c"}
	]`)
	if _, err := LoadCredentials(path); err == nil {
		t.Fatal("expected error for blank token id")
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
