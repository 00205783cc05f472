package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/analystloop/sandbox"
)

// FakeQuery is a scripted query executor keyed by query text.
type FakeQuery struct {
	mu      sync.Mutex
	rows    map[string][][]any
	errs    map[string]error
	queries []string
}

// NewFakeQuery creates an empty FakeQuery. Unknown queries return no rows.
func NewFakeQuery() *FakeQuery {
	return &FakeQuery{rows: map[string][][]any{}, errs: map[string]error{}}
}

// On scripts the rows returned for query (chainable).
func (f *FakeQuery) On(query string, rows ...[]any) *FakeQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[query] = rows
	return f
}

// Fail scripts an error for query (chainable).
func (f *FakeQuery) Fail(query string, err error) *FakeQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[query] = err
	return f
}

// Queries returns the queries run so far, in order.
func (f *FakeQuery) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Run implements query.Executor.
func (f *FakeQuery) Run(_ context.Context, query string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.rows[query], nil
}

// Upload records one staged file.
type Upload struct {
	Path string
	Data string
}

// FakeSandbox records uploads and executed code and returns scripted
// results in order.
type FakeSandbox struct {
	mu        sync.Mutex
	results   []sandbox.Result
	errs      []error
	uploadErr error
	uploads   []Upload
	executed  []string
}

// NewFakeSandbox creates an empty FakeSandbox.
func NewFakeSandbox() *FakeSandbox { return &FakeSandbox{} }

// Returns queues a successful execution result (chainable).
func (f *FakeSandbox) Returns(res sandbox.Result) *FakeSandbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	f.errs = append(f.errs, nil)
	return f
}

// Fails queues a failing execution (chainable).
func (f *FakeSandbox) Fails(err error) *FakeSandbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, nil)
	f.errs = append(f.errs, err)
	return f
}

// FailUploads makes every upload fail with err (chainable).
func (f *FakeSandbox) FailUploads(err error) *FakeSandbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadErr = err
	return f
}

// Uploads returns the recorded uploads.
func (f *FakeSandbox) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

// Executed returns the code strings executed so far.
func (f *FakeSandbox) Executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

// Upload implements sandbox.Uploader.
func (f *FakeSandbox) Upload(_ context.Context, data []byte, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, Upload{Path: remotePath, Data: string(data)})
	return nil
}

// Execute implements sandbox.Executor.
func (f *FakeSandbox) Execute(_ context.Context, code string) (sandbox.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, code)
	if len(f.results) == 0 {
		return nil, fmt.Errorf("fake sandbox: no scripted result for call %d", len(f.executed))
	}
	res, err := f.results[0], f.errs[0]
	f.results, f.errs = f.results[1:], f.errs[1:]
	return res, err
}
