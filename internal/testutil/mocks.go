package testutil

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
)

// =============================================================================
// FakeCatalog - in-memory TMDB stand-in
// =============================================================================

// ErrCatalogDown is returned by FakeCatalog when Down is set.
var ErrCatalogDown = errors.New("catalog down")

// FakeCatalog implements service.Catalog with canned data.
type FakeCatalog struct {
	mu      sync.Mutex
	items   map[string]*model.CatalogItem
	seasons map[string]*model.CatalogSeason

	// Down makes every call fail with DownErr (or ErrCatalogDown).
	Down    bool
	DownErr error

	SeasonCalls int
}

// NewFakeCatalog creates an empty FakeCatalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		items:   map[string]*model.CatalogItem{},
		seasons: map[string]*model.CatalogSeason{},
	}
}

func itemKey(t model.MediaType, id int) string { return fmt.Sprintf("%s:%d", t, id) }
func seasonKey(show, season int) string     { return fmt.Sprintf("%d:%d", show, season) }

// AddMovie registers a movie.
func (f *FakeCatalog) AddMovie(id int, title string, runtime int) *model.CatalogItem {
	item := &model.CatalogItem{ID: id, Type: model.MediaTypeMovie, Title: title, Runtime: runtime, ReleaseDate: "2020-01-01", VoteAverage: 7.5, VoteCount: 100}
	f.mu.Lock()
	f.items[itemKey(item.Type, id)] = item
	f.mu.Unlock()
	return item
}

// AddShow registers a show and one season with the given episode runtimes.
func (f *FakeCatalog) AddShow(id int, title string, season int, runtimes ...int) *model.CatalogItem {
	item := &model.CatalogItem{ID: id, Type: model.MediaTypeTV, Title: title, Runtime: model.DefaultEpisodeRuntime, EpisodeCount: len(runtimes), SeasonCount: 1}
	cs := &model.CatalogSeason{ShowID: id, SeasonNumber: season, Name: fmt.Sprintf("Season %d", season)}
	for i, rt := range runtimes {
		cs.Episodes = append(cs.Episodes, model.CatalogEpisode{
			SeasonNumber:  season,
			EpisodeNumber: i + 1,
			Title:         fmt.Sprintf("Episode %d", i+1),
			Runtime:       rt,
		})
	}
	f.mu.Lock()
	f.items[itemKey(item.Type, id)] = item
	f.seasons[seasonKey(id, season)] = cs
	f.mu.Unlock()
	return item
}

// AddSeason registers an extra season of a show already added with AddShow.
func (f *FakeCatalog) AddSeason(showID, season int, runtimes ...int) {
	cs := &model.CatalogSeason{ShowID: showID, SeasonNumber: season, Name: fmt.Sprintf("Season %d", season)}
	for i, rt := range runtimes {
		cs.Episodes = append(cs.Episodes, model.CatalogEpisode{
			SeasonNumber:  season,
			EpisodeNumber: i + 1,
			Title:         fmt.Sprintf("Episode %d", i+1),
			Runtime:       rt,
		})
	}
	f.mu.Lock()
	if it, ok := f.items[itemKey(model.MediaTypeTV, showID)]; ok {
		it.EpisodeCount += len(runtimes)
		it.SeasonCount++
	}
	f.seasons[seasonKey(showID, season)] = cs
	f.mu.Unlock()
}

func (f *FakeCatalog) fail() error {
	if f.DownErr != nil {
		return f.DownErr
	}
	return ErrCatalogDown
}

// Search returns all registered items whose title matches the query.
func (f *FakeCatalog) Search(_ context.Context, query string, page int) (*model.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, f.fail()
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return nil, err
	}
	out := &model.CatalogPage{Page: page, TotalPages: 1}
	for _, it := range f.items {
		if re.MatchString(it.Title) {
			out.Results = append(out.Results, *it)
		}
	}
	out.TotalResults = len(out.Results)
	return out, nil
}

// Details returns a registered item.
func (f *FakeCatalog) Details(_ context.Context, t model.MediaType, id int) (*model.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, f.fail()
	}
	it, ok := f.items[itemKey(t, id)]
	if !ok {
		return nil, f.fail()
	}
	cp := *it
	return &cp, nil
}

// Season returns a registered season.
func (f *FakeCatalog) Season(_ context.Context, showID, season int) (*model.CatalogSeason, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SeasonCalls++
	if f.Down {
		return nil, f.fail()
	}
	cs, ok := f.seasons[seasonKey(showID, season)]
	if !ok {
		return nil, f.fail()
	}
	return cs, nil
}

// Trending returns every registered item of the given type.
func (f *FakeCatalog) Trending(_ context.Context, mediaType string) ([]model.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, f.fail()
	}
	var out []model.CatalogItem
	for _, it := range f.items {
		if mediaType == "all" || string(it.Type) == mediaType {
			out = append(out, *it)
		}
	}
	return out, nil
}

// =============================================================================
// RecordingMailer - captures outgoing mail
// =============================================================================

// SentMail is one captured message.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// RecordingMailer implements service.Mailer and keeps every message.
type RecordingMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

// Send records the message, or returns Err when set.
func (m *RecordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message to the address.
func (m *RecordingMailer) Last(to string) (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].To == to {
			return m.Sent[i], true
		}
	}
	return SentMail{}, false
}

var (
	otpPattern   = regexp.MustCompile(`code is: (\d{6})`)
	tokenPattern = regexp.MustCompile(`/reset-password/([0-9a-f]+)`)
)

// LastOTP extracts the verification code from the latest mail to the address.
func (m *RecordingMailer) LastOTP(to string) string {
	msg, ok := m.Last(to)
	if !ok {
		return ""
	}
	if match := otpPattern.FindStringSubmatch(msg.Body); match != nil {
		return match[1]
	}
	return ""
}

// LastResetToken extracts the reset token from the latest mail to the address.
func (m *RecordingMailer) LastResetToken(to string) string {
	msg, ok := m.Last(to)
	if !ok {
		return ""
	}
	if match := tokenPattern.FindStringSubmatch(msg.Body); match != nil {
		return match[1]
	}
	return ""
}
