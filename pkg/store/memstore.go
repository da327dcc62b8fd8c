package store

import (
	"context"
	"sync"
	"time"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// MemStore is an in-memory Store implementation used by unit tests
// across pkg/discoverer, pkg/worker, and pkg/scheduler so they don't
// need a BoltStore temp file per test. Semantics mirror BoltStore
// exactly; only the storage medium differs.
type MemStore struct {
	mu     sync.RWMutex
	locks  *siteLocks
	users  map[string]types.User
	sites  map[string]types.Site
	files  map[string]types.File
	ids    map[string]map[string]struct{} // userID\x00fileURL -> set of ids
	errors map[string][]types.ProcessingError
	nextID int64
}

// NewMemStore creates an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		locks:  newSiteLocks(),
		users:  make(map[string]types.User),
		sites:  make(map[string]types.Site),
		files:  make(map[string]types.File),
		ids:    make(map[string]map[string]struct{}),
		errors: make(map[string][]types.ProcessingError),
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) CreateUser(ctx context.Context, u *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = *u
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, userID string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.APIKey == apiKey {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = at
	s.users[userID] = u
	return nil
}

func (s *MemStore) AddSite(ctx context.Context, site *types.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[siteMapKey(site.SiteURL, site.UserID)] = *site
	return nil
}

func (s *MemStore) RemoveSite(ctx context.Context, siteURL, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := siteMapKey(siteURL, userID)
	site, ok := s.sites[key]
	if !ok {
		return ErrNotFound
	}
	site.IsActive = false
	s.sites[key] = site
	return nil
}

func (s *MemStore) GetSite(ctx context.Context, siteURL, userID string) (*types.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteMapKey(siteURL, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &site, nil
}

func (s *MemStore) GetDueSites(ctx context.Context, now time.Time) ([]*types.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*types.Site
	for _, site := range s.sites {
		site := site
		if site.Due(now) {
			due = append(due, &site)
		}
	}
	return due, nil
}

func (s *MemStore) ListAllSites(ctx context.Context) ([]*types.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Site, 0, len(s.sites))
	for _, site := range s.sites {
		site := site
		if site.IsActive {
			out = append(out, &site)
		}
	}
	return out, nil
}

func (s *MemStore) UpdateSiteLastProcessed(ctx context.Context, siteURL, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := siteMapKey(siteURL, userID)
	site, ok := s.sites[key]
	if !ok {
		return ErrNotFound
	}
	at := at
	site.LastProcessed = &at
	s.sites[key] = site
	return nil
}

func (s *MemStore) ListSiteFiles(ctx context.Context, siteURL, userID string) ([]*types.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var files []*types.File
	for _, f := range s.files {
		if f.SiteURL == siteURL && f.UserID == userID {
			f := f
			files = append(files, &f)
		}
	}
	return files, nil
}

func (s *MemStore) DiffSiteFiles(ctx context.Context, siteURL, userID, schemaMap string, triples []types.FileTriple) (added, removed []string, err error) {
	unlock := s.locks.lock(siteURL, userID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[string]struct{}, len(triples))
	for _, t := range triples {
		desired[t.FileURL] = struct{}{}
	}

	for fileURL := range desired {
		key := fileMapKey(fileURL, userID)
		f, ok := s.files[key]
		if ok && f.SchemaMap == schemaMap && f.IsActive {
			continue
		}
		if !ok || f.SchemaMap != schemaMap {
			f = types.File{SiteURL: siteURL, UserID: userID, FileURL: fileURL, SchemaMap: schemaMap}
		}
		f.IsActive = true
		s.files[key] = f
		added = append(added, fileURL)
	}

	for key, f := range s.files {
		if f.SiteURL != siteURL || f.UserID != userID || f.SchemaMap != schemaMap || !f.IsActive {
			continue
		}
		if _, wanted := desired[f.FileURL]; wanted {
			continue
		}
		f.IsActive = false
		s.files[key] = f
		removed = append(removed, f.FileURL)
	}

	return added, removed, nil
}

func (s *MemStore) GetFile(ctx context.Context, fileURL, userID string) (*types.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileMapKey(fileURL, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemStore) DeleteFile(ctx context.Context, fileURL, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileMapKey(fileURL, userID))
	return nil
}

func (s *MemStore) ListFileIds(ctx context.Context, fileURL, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.ids[fileMapKey(fileURL, userID)]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemStore) DiffFileIds(ctx context.Context, fileURL, userID string, newIds []string) (added, removed []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fileMapKey(fileURL, userID)
	existing := s.ids[key]
	if existing == nil {
		existing = make(map[string]struct{})
	}
	want := make(map[string]struct{}, len(newIds))
	for _, id := range newIds {
		want[id] = struct{}{}
	}

	next := make(map[string]struct{}, len(want))
	for id := range want {
		next[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range existing {
		if _, ok := want[id]; !ok {
			removed = append(removed, id)
		}
	}
	s.ids[key] = next

	if f, ok := s.files[key]; ok {
		now := timeNow()
		f.LastReadTime = &now
		f.NumberOfItems = len(newIds)
		s.files[key] = f
	}

	return added, removed, nil
}

func (s *MemStore) RefCount(ctx context.Context, id, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	prefix := userID + "\x00"
	for key, set := range s.ids {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if _, ok := set[id]; ok {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) LogError(ctx context.Context, pe *types.ProcessingError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	pe.ID = s.nextID
	key := fileMapKey(pe.FileURL, pe.UserID)
	s.errors[key] = append(s.errors[key], *pe)
	return nil
}

func (s *MemStore) ClearErrors(ctx context.Context, fileURL, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, fileMapKey(fileURL, userID))
	return nil
}

func (s *MemStore) ListErrors(ctx context.Context, fileURL, userID string, limit int) ([]*types.ProcessingError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.errors[fileMapKey(fileURL, userID)]
	var out []*types.ProcessingError
	for i := range all {
		pe := all[i]
		out = append(out, &pe)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, site := range s.sites {
		if site.IsActive {
			c.ActiveSites++
		} else {
			c.InactiveSites++
		}
	}
	for _, f := range s.files {
		if f.IsActive {
			c.ActiveFiles++
		} else {
			c.InactiveFiles++
		}
	}
	for _, set := range s.ids {
		c.Ids += len(set)
	}
	return c, nil
}

func siteMapKey(siteURL, userID string) string { return userID + "\x00" + siteURL }
func fileMapKey(fileURL, userID string) string { return userID + "\x00" + fileURL }
