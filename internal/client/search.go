package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// Search defaults.
const (
	DefaultDebounce = 800 * time.Millisecond
	DefaultPageSize = 10
)

// Search endpoints served by the API.
const (
	EndpointUsers          = "/users/search"
	EndpointProjects       = "/projects/search"
	EndpointClaims         = "/claims/search"
	EndpointClaimerClaims  = "/claims/claimer-search"
	EndpointApprovalClaims = "/claims/approval-search"
	EndpointFinanceClaims  = "/claims/finance-search"
	EndpointClaimLogs      = "/claim-logs/search"
)

// State is a snapshot of a SearchClient.
type State[T any] struct {
	Query      Query
	Items      []T
	TotalItems int64
	TotalPages int
	Loading    bool
	// Err is the error of the last completed fetch, nil after a success.
	Err error
}

type searchOptions struct {
	debounce   time.Duration
	pageSize   int
	sort       string
	filters    map[string]string
	scheduler  Scheduler
	notifier   Notifier
	logger     *slog.Logger
	accumulate bool
	title      string
}

// SearchOption configures a SearchClient.
type SearchOption func(*searchOptions)

// WithDebounce sets the delay between the last keyword or filter change and
// the fetch it triggers.
func WithDebounce(d time.Duration) SearchOption {
	return func(o *searchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) SearchOption {
	return func(o *searchOptions) {
		o.pageSize = max(n, 1)
	}
}

// WithSort sets the sort sent with every request.
func WithSort(sort string) SearchOption {
	return func(o *searchOptions) {
		o.sort = sort
	}
}

// WithFilters sets filters that start out on the query.
func WithFilters(filters map[string]string) SearchOption {
	return func(o *searchOptions) {
		o.filters = filters
	}
}

// WithScheduler replaces the timer source used for debouncing.
func WithScheduler(s Scheduler) SearchOption {
	return func(o *searchOptions) {
		o.scheduler = s
	}
}

// WithNotifier sets where fetch failures are surfaced.
func WithNotifier(n Notifier) SearchOption {
	return func(o *searchOptions) {
		o.notifier = n
	}
}

// WithSearchLogger sets the logger for warnings such as oversized pages.
func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(o *searchOptions) {
		o.logger = l
	}
}

// WithAccumulate makes pages after the first append to the held items
// instead of replacing them.
func WithAccumulate() SearchOption {
	return func(o *searchOptions) {
		o.accumulate = true
	}
}

// WithTitle names the list in notifications.
func WithTitle(title string) SearchOption {
	return func(o *searchOptions) {
		o.title = title
	}
}

// SearchClient holds a Query against one search endpoint and the page of T
// it last returned.
//
// Keyword and filter changes are debounced; page changes fetch immediately.
// Each request is tagged with a sequence number and only the response to the
// most recent request is applied. Close stops the debounce timer, cancels
// in-flight requests, and turns any later response into a no-op.
//
// A SearchClient is safe for concurrent use.
type SearchClient[T any] struct {
	api      *Client
	endpoint string
	opts     searchOptions

	// ctx is canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	query    Query
	items    []T
	total    int64
	pages    int
	loading  bool
	err      error
	seq      uint64
	timer    Timer
	timerGen uint64
	closed   bool
	onChange func(State[T])
	// edits made by UpdateItem while a request was in flight; that
	// request's response predates them and gets them re-applied.
	edits []itemEdit[T]
}

type itemEdit[T any] struct {
	match  func(T) bool
	mutate func(*T)
	seq    uint64
}

// NewSearchClient returns a SearchClient for endpoint. Nothing is fetched
// until Fetch or one of the setters is called.
func NewSearchClient[T any](api *Client, endpoint string, opts ...SearchOption) *SearchClient[T] {
	o := searchOptions{
		debounce:  DefaultDebounce,
		pageSize:  DefaultPageSize,
		scheduler: realScheduler{},
		notifier:  LogNotifier{},
		logger:    slog.Default(),
		title:     "search",
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	filters := make(map[string]string, len(o.filters))
	for k, v := range o.filters {
		if v != "" {
			filters[k] = v
		}
	}
	return &SearchClient[T]{
		api:      api,
		endpoint: endpoint,
		opts:     o,
		ctx:      ctx,
		cancel:   cancel,
		query: Query{
			Filters:  filters,
			PageNum:  1,
			PageSize: o.pageSize,
			Sort:     o.sort,
		},
		items: []T{},
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs outside the client's lock and may call back into the client.
func (s *SearchClient[T]) OnChange(fn func(State[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetKeyword sets the keyword, resets to page 1, and schedules a debounced
// fetch.
func (s *SearchClient[T]) SetKeyword(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.query.Keyword = text
	s.query.PageNum = 1
	s.scheduleLocked()
	s.mu.Unlock()
}

// SetFilter sets one filter, resets to page 1, and schedules a debounced
// fetch. An empty value removes the filter.
func (s *SearchClient[T]) SetFilter(key, value string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if value == "" {
		delete(s.query.Filters, key)
	} else {
		s.query.Filters[key] = value
	}
	s.query.PageNum = 1
	s.scheduleLocked()
	s.mu.Unlock()
}

// SetPage moves to page n (clamped to 1) and fetches immediately.
func (s *SearchClient[T]) SetPage(ctx context.Context, n int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.query.PageNum = max(n, 1)
	s.mu.Unlock()
	return s.Fetch(ctx)
}

// SetPageSize changes the page size (clamped to 1), returns to page 1, and
// fetches immediately.
func (s *SearchClient[T]) SetPageSize(ctx context.Context, n int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.query.PageSize = max(n, 1)
	s.query.PageNum = 1
	s.mu.Unlock()
	return s.Fetch(ctx)
}

// ResetToFirstPage sets the page to 1 without fetching.
func (s *SearchClient[T]) ResetToFirstPage() {
	s.mu.Lock()
	s.query.PageNum = 1
	s.mu.Unlock()
}

// LoadMore fetches the page after the current one when there is one. It
// reports whether a fetch was issued. Intended for accumulate mode.
func (s *SearchClient[T]) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	held := domain.PageInfo{PageNum: s.query.PageNum, TotalPages: s.pages}
	if s.loading || !held.HasNext() {
		s.mu.Unlock()
		return false, nil
	}
	s.query.PageNum++
	s.mu.Unlock()
	return true, s.Fetch(ctx)
}

// Fetch cancels any pending debounced fetch and sends the current query.
//
// On success the held page is replaced (or appended to, in accumulate mode
// past page 1). On failure the held items are cleared, the error is recorded
// and surfaced through the Notifier, and it is returned; nothing is retried.
// If a newer request was issued while this one was in flight, its response
// is dropped and ErrSuperseded is returned.
func (s *SearchClient[T]) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopTimerLocked()
	s.seq++
	seq := s.seq
	q := s.query.clone()
	s.loading = true
	state, fn := s.snapshotLocked()
	s.mu.Unlock()
	emit(fn, state)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	var page domain.PageResult[T]
	err := s.api.Do(reqCtx, http.MethodPost, s.endpoint, q.request(), &page)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if seq != s.seq {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.loading = false
	if err != nil {
		s.items = []T{}
		s.total = 0
		s.pages = 0
		s.err = err
	} else {
		s.applyLocked(q, page)
		s.replayEditsLocked(seq)
	}
	s.edits = nil
	state, fn = s.snapshotLocked()
	s.mu.Unlock()
	emit(fn, state)

	if err != nil {
		notifyError(ctx, s.opts.notifier, s.opts.title+" failed", err)
	}
	return err
}

func (s *SearchClient[T]) applyLocked(q Query, page domain.PageResult[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	if len(items) > q.PageSize {
		s.opts.logger.Warn("server returned more items than requested; truncating",
			slog.String("endpoint", s.endpoint),
			slog.Int("page_size", q.PageSize),
			slog.Int("received", len(items)),
		)
		items = items[:q.PageSize]
	}
	if s.opts.accumulate && q.PageNum > 1 {
		s.items = append(s.items, items...)
	} else {
		s.items = items
	}
	s.total = page.PageInfo.TotalItems
	s.pages = page.PageInfo.TotalPages
	s.err = nil
}

func (s *SearchClient[T]) replayEditsLocked(seq uint64) {
	for _, e := range s.edits {
		if e.seq != seq {
			continue
		}
		if i := slices.IndexFunc(s.items, e.match); i >= 0 {
			e.mutate(&s.items[i])
		}
	}
}

// UpdateItem applies mutate to the first held item for which match returns
// true and reports whether one was found. It never contacts the server.
//
// If a fetch is in flight the edit is also applied to its response when it
// lands, so a page read before the edit cannot undo it.
func (s *SearchClient[T]) UpdateItem(match func(T) bool, mutate func(*T)) bool {
	s.mu.Lock()
	if s.loading {
		s.edits = append(s.edits, itemEdit[T]{match: match, mutate: mutate, seq: s.seq})
	}
	i := slices.IndexFunc(s.items, match)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	mutate(&s.items[i])
	state, fn := s.snapshotLocked()
	s.mu.Unlock()
	emit(fn, state)
	return true
}

// State returns a snapshot of the client.
func (s *SearchClient[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.snapshotLocked()
	return state
}

// Items returns a copy of the held items.
func (s *SearchClient[T]) Items() []T {
	return s.State().Items
}

// Query returns a copy of the current query.
func (s *SearchClient[T]) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.clone()
}

// Loading reports whether the latest request is still in flight.
func (s *SearchClient[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Close stops the debounce timer and cancels in-flight requests. Responses
// that arrive afterwards are ignored. Close is idempotent.
func (s *SearchClient[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.loading = false
	s.mu.Unlock()
	s.cancel()
}

func (s *SearchClient[T]) scheduleLocked() {
	s.stopTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.opts.scheduler.AfterFunc(s.opts.debounce, func() {
		s.mu.Lock()
		if s.closed || gen != s.timerGen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		if err := s.Fetch(s.ctx); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrClosed) {
			s.opts.logger.Debug("debounced fetch failed",
				slog.String("endpoint", s.endpoint),
				slog.Any("error", err),
			)
		}
	})
}

func (s *SearchClient[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate a callback that already fired but has not taken the lock.
	s.timerGen++
}

func (s *SearchClient[T]) snapshotLocked() (State[T], func(State[T])) {
	return State[T]{
		Query:      s.query.clone(),
		Items:      slices.Clone(s.items),
		TotalItems: s.total,
		TotalPages: s.pages,
		Loading:    s.loading,
		Err:        s.err,
	}, s.onChange
}

func emit[T any](fn func(State[T]), state State[T]) {
	if fn != nil {
		fn(state)
	}
}
