package exif_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"snapsort/internal/exif"
	"snapsort/internal/logging"
	"snapsort/internal/testsupport"
)

type fakeExecutor struct {
	calls   [][]string
	outputs [][]byte
	errs    []error
}

func (f *fakeExecutor) Output(_ context.Context, _ string, args []string) ([]byte, error) {
	index := len(f.calls)
	f.calls = append(f.calls, args)
	var out []byte
	var err error
	if index < len(f.outputs) {
		out = f.outputs[index]
	}
	if index < len(f.errs) {
		err = f.errs[index]
	}
	return out, err
}

func exifJSON(t *testing.T, entries []map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func newResolver(t *testing.T, execFake *fakeExecutor, mutate func(chunkSize int) int) *exif.Resolver {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.ExifTool.InlineFallback = false
	if mutate != nil {
		cfg.ExifTool.ChunkSize = mutate(cfg.ExifTool.ChunkSize)
	}
	return exif.NewResolver(cfg, logging.NewNop(), exif.WithExecutor(execFake))
}

func TestResolveAllUsesFieldPriority(t *testing.T) {
	execFake := &fakeExecutor{
		outputs: [][]byte{exifJSON(t, []map[string]any{
			{
				"SourceFile":       "/src/a.jpg",
				"ModifyDate":       "2020:05:05 10:00:00",
				"DateTimeOriginal": "2017:02:05 12:34:56",
			},
			{
				"SourceFile": "/src/b.mov",
				"CreateDate": "2018:07:01 09:30:00",
			},
			{
				"SourceFile": "/src/c.png",
			},
		})},
	}
	resolver := newResolver(t, execFake, nil)

	resolved := resolver.ResolveAll(context.Background(), []string{"/src/a.jpg", "/src/b.mov", "/src/c.png"}, nil)

	wantA := time.Date(2017, time.February, 5, 12, 34, 56, 0, time.Local)
	if got, ok := resolved["/src/a.jpg"]; !ok || !got.Equal(wantA) {
		t.Fatalf("a.jpg: got %v ok=%v, want %v", got, ok, wantA)
	}
	wantB := time.Date(2018, time.July, 1, 9, 30, 0, 0, time.Local)
	if got, ok := resolved["/src/b.mov"]; !ok || !got.Equal(wantB) {
		t.Fatalf("b.mov: got %v ok=%v, want %v", got, ok, wantB)
	}
	if _, ok := resolved["/src/c.png"]; ok {
		t.Fatal("c.png has no datetime fields and must stay unresolved")
	}
}

func TestResolveAllChunksAndReportsProgress(t *testing.T) {
	execFake := &fakeExecutor{
		outputs: [][]byte{
			exifJSON(t, []map[string]any{
				{"SourceFile": "/src/1.jpg", "DateTimeOriginal": "2017:01:01 00:00:01"},
				{"SourceFile": "/src/2.jpg", "DateTimeOriginal": "2017:01:01 00:00:02"},
			}),
			exifJSON(t, []map[string]any{
				{"SourceFile": "/src/3.jpg", "DateTimeOriginal": "2017:01:01 00:00:03"},
			}),
		},
	}
	resolver := newResolver(t, execFake, func(int) int { return 2 })

	var progress []int
	resolved := resolver.ResolveAll(context.Background(),
		[]string{"/src/1.jpg", "/src/2.jpg", "/src/3.jpg"},
		func(done, total int) {
			if total != 3 {
				t.Fatalf("unexpected total %d", total)
			}
			progress = append(progress, done)
		})

	if len(execFake.calls) != 2 {
		t.Fatalf("expected 2 exiftool invocations, got %d", len(execFake.calls))
	}
	if len(resolved) != 3 {
		t.Fatalf("expected 3 resolved paths, got %d", len(resolved))
	}
	if len(progress) != 2 || progress[0] != 2 || progress[1] != 3 {
		t.Fatalf("unexpected progress sequence %v", progress)
	}
}

func TestResolveAllChunkFailureDoesNotAbortBatch(t *testing.T) {
	execFake := &fakeExecutor{
		outputs: [][]byte{
			nil,
			exifJSON(t, []map[string]any{
				{"SourceFile": "/src/ok.jpg", "DateTimeOriginal": "2019:03:03 03:03:03"},
			}),
		},
		errs: []error{errors.New("exiftool crashed"), nil},
	}
	resolver := newResolver(t, execFake, func(int) int { return 1 })

	resolved := resolver.ResolveAll(context.Background(), []string{"/src/bad.jpg", "/src/ok.jpg"}, nil)

	if _, ok := resolved["/src/bad.jpg"]; ok {
		t.Fatal("failed chunk should leave its paths unresolved")
	}
	if _, ok := resolved["/src/ok.jpg"]; !ok {
		t.Fatal("later chunks should still resolve")
	}
}

func TestResolveAllPassesFieldArguments(t *testing.T) {
	execFake := &fakeExecutor{outputs: [][]byte{exifJSON(t, nil)}}
	resolver := newResolver(t, execFake, nil)

	resolver.ResolveAll(context.Background(), []string{"/src/a.jpg"}, nil)

	if len(execFake.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(execFake.calls))
	}
	args := execFake.calls[0]
	want := []string{"-json", "-n", "-DateTimeOriginal", "-CreateDate", "-MediaCreateDate", "-CreationDate", "-TrackCreateDate", "-ModifyDate", "/src/a.jpg"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}
}
