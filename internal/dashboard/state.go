package dashboard

import (
	"sort"
	"sync"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// Snapshot is an immutable copy of the state handed to subscribers.
type Snapshot struct {
	Documents        []domain.Document
	Categories       []domain.Category
	SelectedCategory string
	Tab              Tab
	Search           string
	Pages            map[Tab]int
	Pools            Pools
	Visible          []domain.Document
	HasMore          bool
	InFlight         []string
}

type Subscriber func(Snapshot)

// State owns the canonical document and category lists plus the view settings. Pools are
// re-derived on every change and never edited directly.
type State struct {
	mu sync.Mutex

	documents        []domain.Document
	categories       []domain.Category
	selectedCategory string
	tab              Tab
	search           string
	pages            map[Tab]int
	inFlight         map[string]struct{}

	nextSubID   int
	subscribers map[int]Subscriber
}

func NewState() *State {
	return &State{
		tab:         TabDocuments,
		pages:       freshPages(),
		inFlight:    map[string]struct{}{},
		subscribers: map[int]Subscriber{},
	}
}

func freshPages() map[Tab]int {
	pages := make(map[Tab]int, len(Tabs))
	for _, t := range Tabs {
		pages[t] = 1
	}
	return pages
}

// Subscribe registers fn for every published snapshot and returns a cancel func.
func (s *State) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) SetDocuments(docs []domain.Document) {
	s.update(func() bool {
		s.documents = append([]domain.Document(nil), docs...)
		return true
	})
}

func (s *State) SetCategories(categories []domain.Category) {
	s.update(func() bool {
		s.categories = append([]domain.Category(nil), categories...)
		return true
	})
}

// PatchDocument replaces the document with the same id, or prepends it when it is new.
func (s *State) PatchDocument(doc domain.Document) {
	s.update(func() bool {
		for i := range s.documents {
			if s.documents[i].ID == doc.ID {
				s.documents[i] = doc
				return true
			}
		}
		s.documents = append([]domain.Document{doc}, s.documents...)
		return true
	})
}

func (s *State) AddCategory(c domain.Category) {
	s.update(func() bool {
		s.categories = append(s.categories, c)
		return true
	})
}

func (s *State) RemoveCategory(name string) {
	s.update(func() bool {
		for i, c := range s.categories {
			if c.Name == name {
				if c.ID == s.selectedCategory {
					s.selectedCategory = ""
					s.pages = freshPages()
				}
				s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
				return true
			}
		}
		return false
	})
}

// SelectCategory is a no-op when id is already selected.
func (s *State) SelectCategory(id string) {
	s.update(func() bool {
		if s.selectedCategory == id {
			return false
		}
		s.selectedCategory = id
		s.pages = freshPages()
		return true
	})
}

func (s *State) SetTab(tab Tab) {
	s.update(func() bool {
		if !tab.Valid() || s.tab == tab {
			return false
		}
		s.tab = tab
		s.pages = freshPages()
		return true
	})
}

func (s *State) SetSearch(term string) {
	s.update(func() bool {
		if s.search == term {
			return false
		}
		s.search = term
		s.pages = freshPages()
		return true
	})
}

// LoadMore grows the active tab's page counter by one unit.
func (s *State) LoadMore() {
	s.update(func() bool {
		s.pages[s.tab]++
		return true
	})
}

// BeginAction marks key as in flight. It reports false when key is already running.
func (s *State) BeginAction(key string) bool {
	started := false
	s.update(func() bool {
		if _, busy := s.inFlight[key]; busy {
			return false
		}
		s.inFlight[key] = struct{}{}
		started = true
		return true
	})
	return started
}

func (s *State) EndAction(key string) {
	s.update(func() bool {
		if _, busy := s.inFlight[key]; !busy {
			return false
		}
		delete(s.inFlight, key)
		return true
	})
}

// update applies mutate under the lock and publishes a snapshot when it reports a change.
// Subscribers run outside the lock.
func (s *State) update(mutate func() bool) {
	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]Subscriber, 0, len(s.subscribers))
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *State) snapshotLocked() Snapshot {
	docs := append([]domain.Document(nil), s.documents...)
	pools := DerivePools(docs)
	pages := make(map[Tab]int, len(s.pages))
	for t, n := range s.pages {
		pages[t] = n
	}
	visible, hasMore := Visible(pools, View{
		CategoryID: s.selectedCategory,
		Tab:        s.tab,
		Search:     s.search,
		Pages:      s.pages[s.tab],
	})
	inFlight := make([]string, 0, len(s.inFlight))
	for key := range s.inFlight {
		inFlight = append(inFlight, key)
	}
	sort.Strings(inFlight)

	return Snapshot{
		Documents:        docs,
		Categories:       append([]domain.Category(nil), s.categories...),
		SelectedCategory: s.selectedCategory,
		Tab:              s.tab,
		Search:           s.search,
		Pages:            pages,
		Pools:            pools,
		Visible:          visible,
		HasMore:          hasMore,
		InFlight:         inFlight,
	}
}
