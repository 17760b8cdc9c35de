package mediatool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeFakeTool writes an executable shell script at dir/name that runs
// body, standing in for the real media binary in tests.
func writeFakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestProbeDuration_ParsesOutput(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "fakeprobe", "echo 123.456789\n")
	tool := New(toolPath)

	seconds, err := tool.ProbeDuration(filepath.Join(dir, "clip.ogg"))
	if err != nil {
		t.Fatalf("ProbeDuration failed: %v", err)
	}
	if seconds != 123.456789 {
		t.Errorf("seconds = %v, want 123.456789", seconds)
	}
}

func TestProbeDuration_NonZeroExitIsError(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "fakeprobe", "exit 1\n")
	tool := New(toolPath)

	if _, err := tool.ProbeDuration(filepath.Join(dir, "clip.ogg")); err == nil {
		t.Fatal("expected error from non-zero exit")
	}
}

func TestProbeDuration_UnparsableOutputIsError(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "fakeprobe", "echo not-a-number\n")
	tool := New(toolPath)

	if _, err := tool.ProbeDuration(filepath.Join(dir, "clip.ogg")); err == nil {
		t.Fatal("expected error for unparsable probe output")
	}
}

func TestRepairTimestamps_Succeeds(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "faketool", "exit 0\n")
	tool := New(toolPath)

	if err := tool.RepairTimestamps(context.Background(), filepath.Join(dir, "seg0.ts"), filepath.Join(dir, "seg0-repaired.webm")); err != nil {
		t.Fatalf("RepairTimestamps failed: %v", err)
	}
}

func TestRepairTimestamps_FailurePropagatesOutput(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "faketool", "echo boom 1>&2\nexit 1\n")
	tool := New(toolPath)

	err := tool.RepairTimestamps(context.Background(), filepath.Join(dir, "seg0.ts"), filepath.Join(dir, "out.webm"))
	if err == nil {
		t.Fatal("expected error from failing repair")
	}
}

func TestConcat_Succeeds(t *testing.T) {
	dir := t.TempDir()
	toolPath := writeFakeTool(t, dir, "faketool", "exit 0\n")
	tool := New(toolPath)

	if err := tool.Concat(context.Background(), filepath.Join(dir, "list.txt"), filepath.Join(dir, "out.webm")); err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
}
