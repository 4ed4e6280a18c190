package handlers

import (
	"context"
	"testing"

	"github.com/jmylchreest/vidwall/internal/models"
	"github.com/jmylchreest/vidwall/internal/registry"
)

func TestHealthHandler_GetLivez(t *testing.T) {
	handler := NewHealthHandler("1.0.0")

	output, err := handler.GetLivez(context.Background(), &LivezInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output == nil {
		t.Fatal("expected non-nil output")
	}

	if output.Body.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", output.Body.Status)
	}
}

func TestHealthHandler_GetReadyz(t *testing.T) {
	t.Run("returns not_ready when nothing is configured", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0")

		output, err := handler.GetReadyz(context.Background(), &ReadyzInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if output.Body.Status != "not_ready" {
			t.Errorf("expected status 'not_ready', got '%s'", output.Body.Status)
		}
		if output.Body.Components["wall"] != "not_configured" {
			t.Errorf("expected wall component 'not_configured', got '%s'", output.Body.Components["wall"])
		}
	})

	t.Run("returns not_ready when registry is empty", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0").WithRegistry(registry.New())

		output, err := handler.GetReadyz(context.Background(), &ReadyzInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if output.Body.Status != "not_ready" {
			t.Errorf("expected status 'not_ready', got '%s'", output.Body.Status)
		}
		if output.Body.Components["content"] != "empty" {
			t.Errorf("expected content component 'empty', got '%s'", output.Body.Components["content"])
		}
	})

	t.Run("content ready once the registry holds sources", func(t *testing.T) {
		reg := registry.New()
		reg.SetStreams([]models.ContentSource{models.StreamSource("http://example.com/a.ts")})

		handler := NewHealthHandler("1.0.0").WithRegistry(reg)

		output, err := handler.GetReadyz(context.Background(), &ReadyzInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if output.Body.Components["content"] != "ok" {
			t.Errorf("expected content component 'ok', got '%s'", output.Body.Components["content"])
		}
	})
}

func TestHealthHandler_GetHealth(t *testing.T) {
	reg := registry.New()
	reg.SetStreams([]models.ContentSource{models.StreamSource("http://example.com/a.ts")})

	handler := NewHealthHandler("1.0.0").WithRegistry(reg)

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.Body.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", output.Body.Status)
	}
	if output.Body.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", output.Body.Version)
	}
	if output.Body.CPU.Cores < 1 {
		t.Errorf("expected at least one CPU core, got %d", output.Body.CPU.Cores)
	}
	if output.Body.Wall.Streams != 1 {
		t.Errorf("expected 1 stream, got %d", output.Body.Wall.Streams)
	}
	if output.Body.Timestamp == "" {
		t.Error("expected non-empty timestamp")
	}
}
