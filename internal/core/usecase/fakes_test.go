package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

type filesFake struct {
	existing map[string]bool
}

func (f filesFake) Exists(path string) bool { return f.existing[path] }

func (f filesFake) ReadFile(context.Context, string) ([]byte, error) {
	panic("classification must not read file contents")
}

type extractorSpy struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []domain.Source
}

func (e *extractorSpy) Extract(_ context.Context, src domain.Source) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, src)
	e.mu.Unlock()
	return e.text, e.err
}

func (e *extractorSpy) called() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fetcherFake struct {
	res *domain.Resource
	err error
	got string
}

func (f *fetcherFake) Fetch(_ context.Context, url string) (*domain.Resource, error) {
	f.got = url
	return f.res, f.err
}
