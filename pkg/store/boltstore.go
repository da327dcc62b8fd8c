package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

var (
	bucketUsers  = []byte("users")
	bucketSites  = []byte("sites")
	bucketFiles  = []byte("files")
	bucketIds    = []byte("ids")
	bucketErrors = []byte("processing_errors")
)

// BoltStore is the embedded, single-process Store backend, intended for
// local development and tests rather than multi-instance deployments
// (pkg/store/sqlstore.go is the production backend). Every entity is a
// JSON blob in its own bucket, adapted from the teacher's
// bucket-per-entity pattern.
type BoltStore struct {
	db    *bolt.DB
	locks *siteLocks
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "schemacrawler.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open boltdb: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketUsers, bucketSites, bucketFiles, bucketIds, bucketErrors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, locks: newSiteLocks()}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func userKey(userID string) []byte { return []byte(userID) }

func siteKey(siteURL, userID string) []byte {
	return []byte(userID + "\x00" + siteURL)
}

func fileKey(fileURL, userID string) []byte {
	return []byte(userID + "\x00" + fileURL)
}

func idKey(fileURL, userID, id string) []byte {
	return []byte(userID + "\x00" + fileURL + "\x00" + id)
}

func splitIdKey(k []byte) (userID, fileURL, id string, ok bool) {
	parts := strings.SplitN(string(k), "\x00", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// --- Users ---

func (s *BoltStore) CreateUser(ctx context.Context, u *types.User) error {
	return wrapUnavailable("create_user", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put(userKey(u.UserID), data)
	}))
}

func (s *BoltStore) GetUser(ctx context.Context, userID string) (*types.User, error) {
	var u types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(userKey(userID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, wrapUnavailable("get_user", err)
	}
	return &u, nil
}

func (s *BoltStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*types.User, error) {
	var found *types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var u types.User
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}
			if u.APIKey == apiKey {
				found = &u
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapUnavailable("get_user_by_api_key", err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *BoltStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return wrapUnavailable("touch_login", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data := b.Get(userKey(userID))
		if data == nil {
			return ErrNotFound
		}
		var u types.User
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		u.LastLogin = at
		out, err := json.Marshal(&u)
		if err != nil {
			return err
		}
		return b.Put(userKey(userID), out)
	}))
}

// --- Sites ---

func (s *BoltStore) AddSite(ctx context.Context, site *types.Site) error {
	return wrapUnavailable("add_site", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data, err := json.Marshal(site)
		if err != nil {
			return err
		}
		return b.Put(siteKey(site.SiteURL, site.UserID), data)
	}))
}

func (s *BoltStore) RemoveSite(ctx context.Context, siteURL, userID string) error {
	return wrapUnavailable("remove_site", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data := b.Get(siteKey(siteURL, userID))
		if data == nil {
			return ErrNotFound
		}
		var site types.Site
		if err := json.Unmarshal(data, &site); err != nil {
			return err
		}
		site.IsActive = false
		out, err := json.Marshal(&site)
		if err != nil {
			return err
		}
		return b.Put(siteKey(siteURL, userID), out)
	}))
}

func (s *BoltStore) GetSite(ctx context.Context, siteURL, userID string) (*types.Site, error) {
	var site types.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSites).Get(siteKey(siteURL, userID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &site)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, wrapUnavailable("get_site", err)
	}
	return &site, nil
}

func (s *BoltStore) GetDueSites(ctx context.Context, now time.Time) ([]*types.Site, error) {
	var due []*types.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).ForEach(func(k, v []byte) error {
			var site types.Site
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			if site.Due(now) {
				due = append(due, &site)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapUnavailable("get_due_sites", err)
	}
	return due, nil
}

func (s *BoltStore) ListAllSites(ctx context.Context) ([]*types.Site, error) {
	var sites []*types.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).ForEach(func(k, v []byte) error {
			var site types.Site
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			if site.IsActive {
				sites = append(sites, &site)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapUnavailable("list_all_sites", err)
	}
	return sites, nil
}

func (s *BoltStore) UpdateSiteLastProcessed(ctx context.Context, siteURL, userID string, at time.Time) error {
	return wrapUnavailable("update_site_last_processed", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data := b.Get(siteKey(siteURL, userID))
		if data == nil {
			return ErrNotFound
		}
		var site types.Site
		if err := json.Unmarshal(data, &site); err != nil {
			return err
		}
		at := at
		site.LastProcessed = &at
		out, err := json.Marshal(&site)
		if err != nil {
			return err
		}
		return b.Put(siteKey(siteURL, userID), out)
	}))
}

// --- Files ---

func (s *BoltStore) ListSiteFiles(ctx context.Context, siteURL, userID string) ([]*types.File, error) {
	var files []*types.File
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(k, v []byte) error {
			var f types.File
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			if f.SiteURL == siteURL && f.UserID == userID {
				files = append(files, &f)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapUnavailable("list_site_files", err)
	}
	return files, nil
}

// DiffSiteFiles is the Discoverer's convergence write, serialized per
// (siteURL, userID) so two concurrent discovery runs for the same site
// can never race each other's tombstone/reactivate decisions (spec.md
// §4.1/§5, grounded on db.py's per-site semaphore).
func (s *BoltStore) DiffSiteFiles(ctx context.Context, siteURL, userID, schemaMap string, triples []types.FileTriple) (added, removed []string, err error) {
	unlock := s.locks.lock(siteURL, userID)
	defer unlock()

	desired := make(map[string]types.FileTriple, len(triples))
	for _, t := range triples {
		desired[t.FileURL] = t
	}

	txErr := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)

		existing := make(map[string]types.File)
		if cerr := b.ForEach(func(k, v []byte) error {
			var f types.File
			if uerr := json.Unmarshal(v, &f); uerr != nil {
				return uerr
			}
			if f.SiteURL == siteURL && f.UserID == userID && f.SchemaMap == schemaMap {
				existing[f.FileURL] = f
			}
			return nil
		}); cerr != nil {
			return cerr
		}

		for fileURL, t := range desired {
			f, ok := existing[fileURL]
			if ok && f.IsActive {
				continue
			}
			if !ok {
				f = types.File{
					SiteURL:   siteURL,
					UserID:    userID,
					FileURL:   fileURL,
					SchemaMap: schemaMap,
				}
			}
			f.IsActive = true
			_ = t
			data, merr := json.Marshal(&f)
			if merr != nil {
				return merr
			}
			if perr := b.Put(fileKey(fileURL, userID), data); perr != nil {
				return perr
			}
			added = append(added, fileURL)
		}

		for fileURL, f := range existing {
			if _, stillWanted := desired[fileURL]; stillWanted {
				continue
			}
			if !f.IsActive {
				continue
			}
			f.IsActive = false
			data, merr := json.Marshal(&f)
			if merr != nil {
				return merr
			}
			if perr := b.Put(fileKey(fileURL, userID), data); perr != nil {
				return perr
			}
			removed = append(removed, fileURL)
		}

		return nil
	})
	if txErr != nil {
		return nil, nil, wrapUnavailable("diff_site_files", txErr)
	}
	return added, removed, nil
}

func (s *BoltStore) GetFile(ctx context.Context, fileURL, userID string) (*types.File, error) {
	var f types.File
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketFiles).Get(fileKey(fileURL, userID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &f)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, wrapUnavailable("get_file", err)
	}
	return &f, nil
}

func (s *BoltStore) DeleteFile(ctx context.Context, fileURL, userID string) error {
	return wrapUnavailable("delete_file", s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).Delete(fileKey(fileURL, userID))
	}))
}

// --- Ids ---

func (s *BoltStore) ListFileIds(ctx context.Context, fileURL, userID string) ([]string, error) {
	prefix := []byte(userID + "\x00" + fileURL + "\x00")
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketIds).Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			_, _, id, ok := splitIdKey(k)
			if ok {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnavailable("list_file_ids", err)
	}
	return ids, nil
}

// DiffFileIds is the Worker's convergence write: it reconciles the id
// set extracted from one file against what's stored, and is safe to
// call more than once with the same newIds (spec.md's at-least-once
// delivery requires this).
func (s *BoltStore) DiffFileIds(ctx context.Context, fileURL, userID string, newIds []string) (added, removed []string, err error) {
	want := make(map[string]struct{}, len(newIds))
	for _, id := range newIds {
		want[id] = struct{}{}
	}

	txErr := s.db.Update(func(tx *bolt.Tx) error {
		ib := tx.Bucket(bucketIds)
		prefix := []byte(userID + "\x00" + fileURL + "\x00")

		existing := make(map[string]struct{})
		c := ib.Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			_, _, id, ok := splitIdKey(k)
			if ok {
				existing[id] = struct{}{}
			}
		}

		for id := range want {
			if _, ok := existing[id]; ok {
				continue
			}
			if err := ib.Put(idKey(fileURL, userID, id), []byte{}); err != nil {
				return err
			}
			added = append(added, id)
		}
		for id := range existing {
			if _, ok := want[id]; ok {
				continue
			}
			if err := ib.Delete(idKey(fileURL, userID, id)); err != nil {
				return err
			}
			removed = append(removed, id)
		}

		fb := tx.Bucket(bucketFiles)
		data := fb.Get(fileKey(fileURL, userID))
		if data != nil {
			var f types.File
			if err := json.Unmarshal(data, &f); err != nil {
				return err
			}
			now := currentTime()
			f.LastReadTime = &now
			f.NumberOfItems = len(newIds)
			out, err := json.Marshal(&f)
			if err != nil {
				return err
			}
			if err := fb.Put(fileKey(fileURL, userID), out); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, wrapUnavailable("diff_file_ids", txErr)
	}
	return added, removed, nil
}

func (s *BoltStore) RefCount(ctx context.Context, id, userID string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIds).ForEach(func(k, _ []byte) error {
			uid, _, kid, ok := splitIdKey(k)
			if ok && uid == userID && kid == id {
				count++
			}
			return nil
		})
	})
	if err != nil {
		return 0, wrapUnavailable("ref_count", err)
	}
	return count, nil
}

// --- Errors ---

func (s *BoltStore) LogError(ctx context.Context, pe *types.ProcessingError) error {
	return wrapUnavailable("log_error", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketErrors)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		pe.ID = int64(seq)
		data, err := json.Marshal(pe)
		if err != nil {
			return err
		}
		return b.Put(errorKey(pe.UserID, pe.FileURL, seq), data)
	}))
}

func (s *BoltStore) ClearErrors(ctx context.Context, fileURL, userID string) error {
	return wrapUnavailable("clear_errors", s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketErrors)
		prefix := []byte(userID + "\x00" + fileURL + "\x00")
		c := b.Cursor()
		var toDelete [][]byte
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte{}, k...))
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *BoltStore) ListErrors(ctx context.Context, fileURL, userID string, limit int) ([]*types.ProcessingError, error) {
	prefix := []byte(userID + "\x00" + fileURL + "\x00")
	var errs []*types.ProcessingError
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketErrors).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var pe types.ProcessingError
			if err := json.Unmarshal(v, &pe); err != nil {
				return err
			}
			errs = append(errs, &pe)
			if limit > 0 && len(errs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnavailable("list_errors", err)
	}
	return errs, nil
}

func errorKey(userID, fileURL string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s\x00%s\x00%020d", userID, fileURL, seq))
}

// --- Counts ---

func (s *BoltStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSites).ForEach(func(_, v []byte) error {
			var site types.Site
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			if site.IsActive {
				c.ActiveSites++
			} else {
				c.InactiveSites++
			}
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFiles).ForEach(func(_, v []byte) error {
			var f types.File
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			if f.IsActive {
				c.ActiveFiles++
			} else {
				c.InactiveFiles++
			}
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(bucketIds).ForEach(func(_, _ []byte) error {
			c.Ids++
			return nil
		})
	})
	if err != nil {
		return Counts{}, wrapUnavailable("counts", err)
	}
	return c, nil
}

// currentTime is a seam so tests can't accidentally depend on wall-clock
// skew between write and assertion; production always uses time.Now.
var currentTime = timeNow

func timeNow() time.Time { return time.Now().UTC() }

// NewAPIKey generates a random, URL-safe API key for a new User.
func NewAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
