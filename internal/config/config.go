// Package config loads API credentials and holds the pipeline settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Service endpoint defaults.
const (
	DefaultSmallURL     = "https://api.idg.vnpt.vn/data-service/v1/chat/completions/vnptai-hackathon-small"
	DefaultLargeURL     = "https://api.idg.vnpt.vn/data-service/v1/chat/completions/vnptai-hackathon-large"
	DefaultEmbeddingURL = "https://api.idg.vnpt.vn/data-service/vnptai-hackathon-embedding"

	DefaultSmallModel     = "vnptai_hackathon_small"
	DefaultLargeModel     = "vnptai_hackathon_large"
	DefaultEmbeddingModel = "vnptai_hackathon_embedding"

	DefaultQdrantURL  = "http://localhost:6333"
	DefaultCollection = "vnpt_wiki"
)

// Credential names in the api keys file.
const (
	CredentialSmall     = "LLM small"
	CredentialLarge     = "LLM large"
	CredentialEmbedding = "LLM embedings"
)

// Credential is one entry of the api keys file.
type Credential struct {
	Name          string `json:"llmApiName"`
	Authorization string `json:"authorization"`
	TokenID       string `json:"tokenId"`
	TokenKey      string `json:"tokenKey"`
}

// Credentials groups the three service identities the pipeline needs.
type Credentials struct {
	Small     Credential
	Large     Credential
	Embedding Credential
}

// LoadCredentials reads the api keys file and resolves the three named
// entries. A missing entry is an error so misconfiguration fails at startup
// instead of mid-run.
func LoadCredentials(path string) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api keys: %w", err)
	}
	var entries []Credential
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse api keys: %w", err)
	}

	byName := make(map[string]Credential, len(entries))
	for _, entry := range entries {
		byName[entry.Name] = entry
	}

	creds := &Credentials{}
	for _, want := range []struct {
		name string
		dst  *Credential
	}{
		{CredentialSmall, &creds.Small},
		{CredentialLarge, &creds.Large},
		{CredentialEmbedding, &creds.Embedding},
	} {
		entry, ok := byName[want.name]
		if !ok {
			return nil, fmt.Errorf("api keys file missing entry %q", want.name)
		}
		if entry.Authorization == "" || entry.TokenID == "" || entry.TokenKey == "" {
			return nil, fmt.Errorf("api keys entry %q is incomplete", want.name)
		}
		*want.dst = entry
	}
	return creds, nil
}

// Pipeline carries the tunables of a prediction run.
type Pipeline struct {
	TopK               int
	RelevanceThreshold float64
	MaxCandidates      int
	CheckpointInterval int
	DefaultAnswer      string
	BranchDelay        time.Duration
}

// DefaultPipeline returns the settings used for submission runs.
func DefaultPipeline() Pipeline {
	return Pipeline{
		TopK:               30,
		RelevanceThreshold: 7.0,
		MaxCandidates:      5,
		CheckpointInterval: 5,
		DefaultAnswer:      "A",
		BranchDelay:        time.Second,
	}
}

// Getenv returns the environment value or a fallback.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
