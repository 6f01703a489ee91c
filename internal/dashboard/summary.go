// Package dashboard assembles the landing summary from three independent upstream listings.
//
// The three listings are fetched concurrently and the summary is published only when all three
// succeeded. Listings that did load are kept per client, so a retry of the failed section does not
// fetch the others again.
package dashboard

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	householddomain "mis-dashboard/backend/internal/household/domain"
	programdomain "mis-dashboard/backend/internal/program/domain"
)

// FailedMessage is reported when the summary could not be assembled.
const FailedMessage = "Failed to load dashboard statistics"

// Section is one of the listings the summary is built from.
type Section string

const (
	SectionPrograms   Section = "programs"
	SectionHouseholds Section = "households"
	SectionMembers    Section = "members"
)

// Sections lists every section in a fixed order.
var Sections = []Section{SectionPrograms, SectionHouseholds, SectionMembers}

// ParseSection validates s.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// Upstream is the part of the upstream API the summary needs.
type Upstream interface {
	ListPrograms(ctx context.Context) ([]programdomain.Program, error)
	ListHouseholds(ctx context.Context) ([]householddomain.Household, error)
	ListMembers(ctx context.Context) ([]householddomain.Member, error)
}

// Summary is the published landing view.
type Summary struct {
	TotalPrograms   int                      `json:"total_programs"`
	TotalHouseholds int                      `json:"total_households"`
	TotalMembers    int                      `json:"total_members"`
	Members         []householddomain.Member `json:"members"`
}

// SectionError reports which section failed.
type SectionError struct {
	Section Section
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("dashboard: load %s: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// FailedSection returns the section err is about, if any.
func FailedSection(err error) (Section, bool) {
	var se *SectionError
	if errors.As(err, &se) {
		return se.Section, true
	}
	return "", false
}

// Owner identifies whose data a cached section is: the browser client and the bearer token it
// was loaded with.
type Owner struct {
	ClientID string
	Token    string
}

// entry is what one client has loaded so far with one token.
type entry struct {
	token      [sha256.Size]byte
	programs   []programdomain.Program
	households []householddomain.Household
	members    []householddomain.Member
	loaded     map[Section]bool
	touched    time.Time
}

// Loader builds summaries and keeps each client's loaded sections for ttl.
type Loader struct {
	ttl  time.Duration
	nowF func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewLoader returns a Loader. A non-positive ttl keeps sections for five minutes.
func NewLoader(ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Loader{ttl: ttl, nowF: time.Now, entries: make(map[string]*entry)}
}

// Load fetches all three sections concurrently. Sections that succeed are kept for Retry even when
// another one fails; the summary is returned only when all three succeeded.
func (l *Loader) Load(ctx context.Context, owner Owner, u Upstream) (*Summary, error) {
	return l.fetch(ctx, owner, u, Sections)
}

// Retry refetches only section, plus any section this client has not loaded yet, and reuses the rest.
// Sections loaded with a different token are never reused.
func (l *Loader) Retry(ctx context.Context, owner Owner, section Section, u Upstream) (*Summary, error) {
	need := []Section{section}
	l.mu.Lock()
	e := l.entryLocked(owner)
	for _, s := range Sections {
		if s != section && !e.loaded[s] {
			need = append(need, s)
		}
	}
	l.mu.Unlock()
	return l.fetch(ctx, owner, u, need)
}

// Forget drops what was kept for clientID. It is called when the client's token is cleared.
func (l *Loader) Forget(clientID string) {
	l.mu.Lock()
	delete(l.entries, clientID)
	l.mu.Unlock()
}

func (l *Loader) fetch(ctx context.Context, owner Owner, u Upstream, sections []Section) (*Summary, error) {
	var (
		g          errgroup.Group
		mu         sync.Mutex
		programs   []programdomain.Program
		households []householddomain.Household
		members    []householddomain.Member
		done       = make(map[Section]bool, len(sections))
	)
	// No group context: a failing section must not cancel its siblings, whose results are kept.
	for _, s := range sections {
		g.Go(func() error {
			var err error
			switch s {
			case SectionPrograms:
				var out []programdomain.Program
				if out, err = u.ListPrograms(ctx); err == nil {
					mu.Lock()
					programs = out
					mu.Unlock()
				}
			case SectionHouseholds:
				var out []householddomain.Household
				if out, err = u.ListHouseholds(ctx); err == nil {
					mu.Lock()
					households = out
					mu.Unlock()
				}
			case SectionMembers:
				var out []householddomain.Member
				if out, err = u.ListMembers(ctx); err == nil {
					mu.Lock()
					members = out
					mu.Unlock()
				}
			}
			if err != nil {
				return &SectionError{Section: s, Err: err}
			}
			mu.Lock()
			done[s] = true
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entryLocked(owner)
	if done[SectionPrograms] {
		e.programs, e.loaded[SectionPrograms] = programs, true
	}
	if done[SectionHouseholds] {
		e.households, e.loaded[SectionHouseholds] = households, true
	}
	if done[SectionMembers] {
		e.members, e.loaded[SectionMembers] = members, true
	}
	if err != nil {
		return nil, err
	}
	return e.summary(), nil
}

// entryLocked returns the owner's entry, creating it, and sweeps expired ones. An entry loaded with
// another token is replaced. Callers hold l.mu.
func (l *Loader) entryLocked(owner Owner) *entry {
	now := l.nowF()
	for id, e := range l.entries {
		if now.Sub(e.touched) > l.ttl {
			delete(l.entries, id)
		}
	}
	token := sha256.Sum256([]byte(owner.Token))
	e, ok := l.entries[owner.ClientID]
	if !ok || e.token != token {
		e = &entry{token: token, loaded: make(map[Section]bool)}
		l.entries[owner.ClientID] = e
	}
	e.touched = now
	return e
}

func (e *entry) summary() *Summary {
	members := e.members
	if members == nil {
		members = []householddomain.Member{}
	}
	return &Summary{
		TotalPrograms:   len(e.programs),
		TotalHouseholds: len(e.households),
		TotalMembers:    len(members),
		Members:         members,
	}
}
