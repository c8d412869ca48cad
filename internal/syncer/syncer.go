// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
)

// Source returns one page of the user's repositories. An empty page marks the
// end of the data. Implementations report a rejected credential with
// errors.ErrUnauthorized and a non-empty page without a single valid record
// with errors.ErrPageRejected.
type Source interface {
	FetchPage(ctx context.Context, page int, token string) ([]model.RepositorySummary, error)
}

// Preferences is the injected settings object the syncer reads its sort order from.
type Preferences interface {
	Snapshot() model.Preferences
	SetSortOrder(order model.SortOrder)
}

// Syncer accumulates pages of repositories for one dashboard session and
// derives the filtered, sorted view a renderer displays. All state
// transitions are serialized by mu; upstream calls run outside of it.
type Syncer struct {
	source Source
	prefs  Preferences
	token  string
	logger *slog.Logger
	group  singleflight.Group

	mu           sync.Mutex
	repos        []model.RepositorySummary
	seen         map[int64]struct{}
	cursor       int
	pagesFetched int
	lastPage     bool
	initialLoad  bool
	fetchingMore bool
	generation   uint64
	searchTerm   string
}

// New creates the state of a new dashboard session.
func New(source Source, prefs Preferences, token string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		source:      source,
		prefs:       prefs,
		token:       token,
		logger:      logger,
		seen:        make(map[int64]struct{}),
		cursor:      1,
		initialLoad: true,
	}
}

// LoadNext fetches the page after the last one merged.
func (s *Syncer) LoadNext(ctx context.Context) error {
	s.mu.Lock()
	page := s.cursor
	s.mu.Unlock()
	return s.LoadPage(ctx, page)
}

// LoadPage fetches page and merges it into the accumulated set. Once the end
// of the data was reached it returns without calling the source. Concurrent
// calls for the same page share a single upstream request.
func (s *Syncer) LoadPage(ctx context.Context, page int) error {
	if page < 1 {
		return &custom_errors.ErrInvalidPage{Page: page}
	}

	s.mu.Lock()
	if s.lastPage {
		s.mu.Unlock()
		s.logger.Debug("Last page already reached, skipping fetch", "page", page)
		return nil
	}
	gen := s.generation
	s.mu.Unlock()

	key := strconv.FormatUint(gen, 10) + "/" + strconv.Itoa(page)
	_, err, _ := s.group.Do(key, func() (any, error) {
		return nil, s.fetch(ctx, gen, page)
	})
	return err
}

// Refresh drops everything fetched so far and loads the first page again.
// Responses still in flight from before the refresh are discarded.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	s.repos = nil
	s.seen = make(map[int64]struct{})
	s.cursor = 1
	s.pagesFetched = 0
	s.lastPage = false
	s.initialLoad = true
	s.fetchingMore = false
	gen := s.generation
	s.mu.Unlock()

	s.logger.Info("Refreshing repositories", "generation", gen)
	return s.LoadPage(ctx, 1)
}

func (s *Syncer) fetch(ctx context.Context, gen uint64, page int) error {
	s.mu.Lock()
	if gen != s.generation || s.lastPage {
		s.mu.Unlock()
		return nil
	}
	if !s.initialLoad {
		s.fetchingMore = true
	}
	s.mu.Unlock()

	logger := s.logger.With("page", page, "generation", gen)
	logger.Debug("Fetching repositories page")
	repos, err := s.source.FetchPage(ctx, page, s.token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		logger.Debug("Discarding page from before refresh")
		return nil
	}
	s.initialLoad = false
	s.fetchingMore = false

	if errors.Is(err, custom_errors.ErrPageRejected) {
		logger.Warn("Skipping page without valid records")
		s.pagesFetched++
		if page >= s.cursor {
			s.cursor = page + 1
		}
		return nil
	}
	if err != nil {
		if errors.Is(err, custom_errors.ErrUnauthorized) {
			logger.Warn("Credential rejected while fetching repositories")
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		logger.Error("Failed to fetch repositories page", "error", err)
		if custom_errors.IsTransport(err) {
			return err
		}
		return &custom_errors.TransportError{Op: fmt.Sprintf("fetch page %d", page), Err: err}
	}

	if len(repos) == 0 {
		logger.Info("Reached the last page")
		s.lastPage = true
		return nil
	}

	added := s.merge(repos)
	s.pagesFetched++
	if page >= s.cursor {
		s.cursor = page + 1
	}
	logger.Info("Merged repositories page", "received", len(repos), "added", added, "total", len(s.repos))
	return nil
}

// merge appends records not seen before. Caller holds mu.
func (s *Syncer) merge(repos []model.RepositorySummary) int {
	added := 0
	for _, r := range repos {
		if _, ok := s.seen[r.ID]; ok {
			continue
		}
		if strings.TrimSpace(r.Language) == "" {
			r.Language = model.UnknownLanguage
		}
		s.seen[r.ID] = struct{}{}
		s.repos = append(s.repos, r)
		added++
	}
	return added
}

// SetSearchTerm changes the free-text filter.
func (s *Syncer) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchTerm = term
}

// SetSortOrder changes the sort order in the injected preferences.
func (s *Syncer) SetSortOrder(order model.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.SetSortOrder(order)
}

// Accumulated returns a copy of every record merged so far, in fetch order.
func (s *Syncer) Accumulated() []model.RepositorySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.repos)
}

// View is what a renderer draws.
type View struct {
	Repositories []model.RepositorySummary
	// Total counts every accumulated record, before filtering.
	Total        int
	PagesFetched int
	NextPage     int
	InitialLoad  bool
	FetchingMore bool
	LastPage     bool
	SearchTerm   string
	Preferences  model.Preferences
}

// View derives the current filtered and sorted sequence. Nothing is listed
// while the initial load is outstanding.
func (s *Syncer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.prefs.Snapshot()
	v := View{
		Total:        len(s.repos),
		PagesFetched: s.pagesFetched,
		NextPage:     s.cursor,
		InitialLoad:  s.initialLoad,
		FetchingMore: s.fetchingMore,
		LastPage:     s.lastPage,
		SearchTerm:   s.searchTerm,
		Preferences:  prefs,
	}
	if !s.initialLoad {
		v.Repositories = Sort(Filter(s.repos, s.searchTerm), prefs.SortOrder)
	}
	return v
}
