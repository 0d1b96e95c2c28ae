package service_test

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ShiinaKin/random-img/app/models"
)

// fakeImageRepo is an in-memory stand-in for the catalog repository.
type fakeImageRepo struct {
	mu        sync.Mutex
	images    map[int64]models.Image
	deleted   map[int64]bool
	getCalls  int
	pickCalls int
	insertErr error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{
		images:  make(map[int64]models.Image),
		deleted: make(map[int64]bool),
	}
}

func (r *fakeImageRepo) add(img models.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.ID] = img
}

func (r *fakeImageRepo) BatchInsert(images []models.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, img := range images {
		r.images[img.ID] = img
	}
	return nil
}

func (r *fakeImageRepo) GetByID(id int64) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	img, ok := r.images[id]
	if !ok || r.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &img, nil
}

func (r *fakeImageRepo) GetByIDOrUID(id, uid *int64) ([]models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Image
	for _, img := range r.images {
		if r.deleted[img.ID] {
			continue
		}
		if id != nil && img.ID == *id {
			out = append(out, img)
		}
		if uid != nil && img.UID == *uid {
			out = append(out, img)
		}
	}
	return out, nil
}

// RandomPick returns the live row with the lowest id, which keeps tests
// deterministic while honoring "a result whenever one row matches".
func (r *fakeImageRepo) RandomPick(uid *int64) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickCalls++
	var ids []int64
	for id, img := range r.images {
		if r.deleted[id] {
			continue
		}
		if uid != nil && img.UID != *uid {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	img := r.images[ids[0]]
	return &img, nil
}

func (r *fakeImageRepo) SoftDeleteByIDs(ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.deleted[id] = true
	}
	return nil
}

func (r *fakeImageRepo) PurgeDeleted() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id := range r.deleted {
		delete(r.images, id)
		delete(r.deleted, id)
		purged++
	}
	return purged, nil
}

func (r *fakeImageRepo) DeleteAllPhysically() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := int64(len(r.images))
	r.images = make(map[int64]models.Image)
	r.deleted = make(map[int64]bool)
	return count, nil
}

func (r *fakeImageRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id := range r.images {
		if !r.deleted[id] {
			count++
		}
	}
	return count, nil
}

func (r *fakeImageRepo) liveCount() int {
	n, _ := r.Count()
	return int(n)
}

// fakePostImageRepo is an in-memory stand-in for the affinity repository.
type fakePostImageRepo struct {
	mu       sync.Mutex
	mappings []models.PostImage
	deleted  map[int64]bool
}

func newFakePostImageRepo() *fakePostImageRepo {
	return &fakePostImageRepo{deleted: make(map[int64]bool)}
}

func (r *fakePostImageRepo) Insert(postImage *models.PostImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = append(r.mappings, *postImage)
	return nil
}

func (r *fakePostImageRepo) GetByContext(origin, postID string) (*models.PostImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if r.deleted[m.ID] {
			continue
		}
		if m.Origin == origin && m.PostID == postID {
			mapping := m
			return &mapping, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePostImageRepo) SoftDeleteByID(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[id] = true
	return nil
}

func (r *fakePostImageRepo) SoftDeleteByImageIDs(imageIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		for _, id := range imageIDs {
			if m.ImageID == id {
				r.deleted[m.ID] = true
			}
		}
	}
	return nil
}

func (r *fakePostImageRepo) SoftDeleteByContext(origin, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if m.Origin == origin && m.PostID == postID {
			r.deleted[m.ID] = true
		}
	}
	return nil
}

func (r *fakePostImageRepo) PurgeDeleted() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.PostImage
	var purged int64
	for _, m := range r.mappings {
		if r.deleted[m.ID] {
			purged++
			continue
		}
		kept = append(kept, m)
	}
	r.mappings = kept
	r.deleted = make(map[int64]bool)
	return purged, nil
}

func (r *fakePostImageRepo) DeleteAllPhysically() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := int64(len(r.mappings))
	r.mappings = nil
	r.deleted = make(map[int64]bool)
	return count, nil
}

func (r *fakePostImageRepo) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.mappings {
		if !r.deleted[m.ID] {
			count++
		}
	}
	return count
}

// fakeCache is an in-memory key/value store; TTLs are recorded, not
// enforced, so tests can simulate expiry by evicting keys.
type fakeCache struct {
	mu       sync.Mutex
	values   map[string]string
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	return val, ok, nil
}

func (c *fakeCache) Set(key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.values[key] = value
	return nil
}

func (c *fakeCache) Expire(key string, ttl time.Duration) error { return nil }

func (c *fakeCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *fakeCache) DeleteByPrefix(prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
			deleted++
		}
	}
	return deleted, nil
}

// evict simulates TTL expiry of a single entry
func (c *fakeCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

func (c *fakeCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// fakeObjectStore records puts and deletes; individual keys can be made to
// fail, and ClearBucket can be gated for concurrency tests.
type fakeObjectStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	staging      map[string][]byte
	deletions    []string
	failPuts     map[string]bool
	wipes        int
	clearGate    chan struct{}
	clearEntered chan struct{}
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  make(map[string][]byte),
		staging:  make(map[string][]byte),
		failPuts: make(map[string]bool),
	}
}

func (s *fakeObjectStore) PutObject(key string, payload []byte, modTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts[key] {
		return errors.New("simulated put failure")
	}
	s.objects[key] = payload
	return nil
}

func (s *fakeObjectStore) DeleteObject(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deletions = append(s.deletions, key)
	return nil
}

func (s *fakeObjectStore) ClearBucket() (int, error) {
	if s.clearEntered != nil {
		close(s.clearEntered)
		s.clearEntered = nil
	}
	if s.clearGate != nil {
		<-s.clearGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.objects)
	s.objects = make(map[string][]byte)
	s.wipes++
	return count, nil
}

func (s *fakeObjectStore) ListObjects() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeObjectStore) ListStaging() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.staging {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeObjectStore) GetStaging(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.staging[key]
	if !ok {
		return nil, errors.New("no such staged archive")
	}
	return data, nil
}

func (s *fakeObjectStore) DeleteStaging(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staging, key)
	return nil
}

func (s *fakeObjectStore) objectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *fakeObjectStore) hasObject(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// fakeNotifier counts republish triggers
type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *fakeNotifier) Notify() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// seqIDGen hands out sequential ids starting at 1
type seqIDGen struct {
	mu   sync.Mutex
	next int64
}

func (g *seqIDGen) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}
