package engine

import (
	"context"
	"io"
	"testing"
)

type mockEngine struct {
	isRunning bool
	models    map[string]bool
	pulled    []string
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []Message, _ ChatOptions) (string, error) {
	return "", nil
}
func (m *mockEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return nil, nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool              { return m.isRunning }
func (m *mockEngine) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockEngine) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "success"})
	}
	return nil
}

// hostedEngine has no model management.
type hostedEngine struct{}

func (hostedEngine) Chat(context.Context, string, []Message, ChatOptions) (string, error) {
	return "", nil
}
func (hostedEngine) Embed(context.Context, string, string) ([]float32, error) { return nil, nil }

func TestEnsureReady_AllModelsPresent(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		models:    map[string]bool{"llama3.2": true, "nomic-embed-text": true},
	}
	err := EnsureReady(context.Background(), m, []string{"llama3.2", "nomic-embed-text"}, io.Discard)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("expected no pulls, got %v", m.pulled)
	}
}

func TestEnsureReady_PullsMissingOnce(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		models:    map[string]bool{"llama3.2": true},
	}
	err := EnsureReady(context.Background(), m, []string{"llama3.2", "nomic-embed-text", "nomic-embed-text", ""}, io.Discard)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "nomic-embed-text" {
		t.Errorf("expected one pull of nomic-embed-text, got %v", m.pulled)
	}
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockEngine{isRunning: false, models: map[string]bool{}}
	if err := EnsureReady(context.Background(), m, []string{"llama3.2"}, io.Discard); err == nil {
		t.Fatal("expected error when engine is down")
	}
}

func TestEnsureReady_HostedEngineSkipsChecks(t *testing.T) {
	if err := EnsureReady(context.Background(), hostedEngine{}, []string{"gpt-4o-mini"}, io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
}
