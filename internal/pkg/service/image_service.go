package service

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ShiinaKin/random-img/app/models"
	"github.com/ShiinaKin/random-img/app/repository"
	"github.com/ShiinaKin/random-img/internal/pkg/selection"
	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
)

const (
	selectKeyPrefix = "random_img:select:"
	randomKeyPrefix = "random_img:random:"
	clearTokenKey   = "random_img:clear"

	cacheTTL      = 3 * time.Hour
	clearTokenTTL = 2 * time.Minute
)

// SelectQuery identifies an exact-id resolution request.
type SelectQuery struct {
	ID      int64
	Width   *int
	Quality *int
}

// RandomQuery identifies a random resolution request, optionally pinned to
// a referring context (origin + post id).
type RandomQuery struct {
	Origin  string
	PostID  string
	UID     *int64
	Width   *int
	Quality *int
}

// WipeOutcome is the result of a wipe-everything request.
type WipeOutcome int

const (
	// WipeArmed means the request was refused and a fresh token issued
	WipeArmed WipeOutcome = iota
	// WipeAccepted means the wipe was started
	WipeAccepted
	// WipeBusy means a destructive operation was already in flight
	WipeBusy
)

// WipeResult carries the outcome and, when armed, the newly issued token.
type WipeResult struct {
	Outcome WipeOutcome
	Token   string
}

// DeleteSummary reports how many catalog rows a delete request matched.
type DeleteSummary struct {
	Matched int
}

// StatusSummary reports the live catalog size and the object count in the
// image bucket.
type StatusSummary struct {
	Images  int64
	Objects int
}

// ImageService owns asset resolution and the delete/wipe pipeline. Reads
// run concurrently; deletes and wipes serialize through a dedicated
// single-worker pool so they never race on object store cleanup.
type ImageService struct {
	images         repository.ImageRepository
	postImages     repository.PostImageRepository
	cache          Cache
	store          ObjectStore
	notifier       Notifier
	ids            IDGenerator
	persistOrigins map[string]struct{}

	destructive *taskpool.Pool
	inFlight    atomic.Bool
}

// NewImageService wires the resolution core. persistOrigins is the
// allow-list of referring origins whose random picks are persisted into the
// affinity map.
func NewImageService(
	images repository.ImageRepository,
	postImages repository.PostImageRepository,
	cache Cache,
	store ObjectStore,
	notifier Notifier,
	ids IDGenerator,
	persistOrigins []string,
	destructive *taskpool.Pool,
) *ImageService {
	allowed := make(map[string]struct{}, len(persistOrigins))
	for _, origin := range persistOrigins {
		allowed[origin] = struct{}{}
	}
	return &ImageService{
		images:         images,
		postImages:     postImages,
		cache:          cache,
		store:          store,
		notifier:       notifier,
		ids:            ids,
		persistOrigins: allowed,
		destructive:    destructive,
	}
}

// SelectImage resolves an exact-id request to a variant URL through the
// cache and the catalog.
func (s *ImageService) SelectImage(query SelectQuery) (string, error) {
	cond := selection.Condition{Quality: query.Quality, Width: query.Width}
	key := fmt.Sprintf("%s%d:%s", selectKeyPrefix, query.ID, cond.CanonicalQuery())

	if url, ok, err := s.cache.Get(key); err != nil {
		log.Errorf("[ImageService] cache get failed for %s: %v", key, err)
	} else if ok {
		if err := s.cache.Expire(key, cacheTTL); err != nil {
			log.Errorf("[ImageService] cache ttl refresh failed for %s: %v", key, err)
		}
		return url, nil
	}

	log.Debugf("[ImageService] select img id: %d, cache miss", query.ID)
	image, err := s.images.GetByID(query.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("catalog lookup failed: %w", err)
	}

	url := selection.Resolve(image, cond)
	if err := s.cache.Set(key, url, cacheTTL); err != nil {
		log.Errorf("[ImageService] cache set failed for %s: %v", key, err)
	}
	return url, nil
}

// RandomSelectImage resolves a random request. Without a context it samples
// fresh on every call; with a context the resolved URL sticks via cache and
// affinity map.
func (s *ImageService) RandomSelectImage(query RandomQuery) (string, error) {
	cond := selection.Condition{UID: query.UID, Quality: query.Quality, Width: query.Width}

	if query.PostID == "" {
		image, err := s.randomPick(query.UID)
		if err != nil {
			return "", err
		}
		log.Infof("[ImageService] random img, origin: %s fetched image %d", query.Origin, image.ID)
		return selection.Resolve(image, cond), nil
	}

	key := fmt.Sprintf("%s%s:%s:%s", randomKeyPrefix, query.Origin, query.PostID, cond.CanonicalQuery())
	if url, ok, err := s.cache.Get(key); err != nil {
		log.Errorf("[ImageService] cache get failed for %s: %v", key, err)
	} else if ok {
		log.Debugf("[ImageService] random img, origin: %s postId: %s, cache hit", query.Origin, query.PostID)
		if err := s.cache.Expire(key, cacheTTL); err != nil {
			log.Errorf("[ImageService] cache ttl refresh failed for %s: %v", key, err)
		}
		return url, nil
	}

	if url, ok := s.resolveFromAffinity(query, cond, key); ok {
		return url, nil
	}

	image, err := s.randomPick(query.UID)
	if err != nil {
		return "", err
	}
	log.Debugf("[ImageService] random img, origin: %s postId: %s, fresh pick %d",
		query.Origin, query.PostID, image.ID)

	url := selection.Resolve(image, cond)

	if _, allowed := s.persistOrigins[query.Origin]; allowed {
		mapping := &models.PostImage{
			ID:             s.ids.NextID(),
			Origin:         query.Origin,
			PostID:         query.PostID,
			ImageID:        image.ID,
			QueryCondition: cond.CanonicalQuery(),
			URL:            url,
		}
		// best-effort: a lost mapping only costs pick stability
		if err := s.postImages.Insert(mapping); err != nil {
			log.Errorf("[ImageService] affinity insert failed for %s/%s: %v",
				query.Origin, query.PostID, err)
		}
	}

	if err := s.cache.Set(key, url, cacheTTL); err != nil {
		log.Errorf("[ImageService] cache set failed for %s: %v", key, err)
	}
	return url, nil
}

// resolveFromAffinity re-resolves a memoized context mapping through the
// catalog. A stale mapping (asset deleted since) is tombstoned and reported
// as a miss so the caller falls through to a fresh pick.
func (s *ImageService) resolveFromAffinity(query RandomQuery, cond selection.Condition, cacheKey string) (string, bool) {
	mapping, err := s.postImages.GetByContext(query.Origin, query.PostID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[ImageService] affinity lookup failed for %s/%s: %v",
				query.Origin, query.PostID, err)
		}
		return "", false
	}

	image, err := s.images.GetByID(mapping.ImageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("[ImageService] stale affinity row %d (image %d gone), dropping",
				mapping.ID, mapping.ImageID)
			if derr := s.postImages.SoftDeleteByID(mapping.ID); derr != nil {
				log.Errorf("[ImageService] dropping stale affinity row %d failed: %v", mapping.ID, derr)
			}
		} else {
			log.Errorf("[ImageService] catalog re-resolve of image %d failed: %v", mapping.ImageID, err)
		}
		return "", false
	}

	url := selection.Resolve(image, cond)
	if err := s.cache.Set(cacheKey, url, cacheTTL); err != nil {
		log.Errorf("[ImageService] cache set failed for %s: %v", cacheKey, err)
	}
	log.Debugf("[ImageService] random img, origin: %s postId: %s, affinity hit image %d",
		query.Origin, query.PostID, image.ID)
	return url, true
}

func (s *ImageService) randomPick(uid *int64) (*models.Image, error) {
	image, err := s.images.RandomPick(uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("random sample failed: %w", err)
	}
	return image, nil
}

// DeleteImage tombstones all assets matching an exact id or an owner id and
// schedules object store cleanup on the serialized destructive worker.
func (s *ImageService) DeleteImage(id, uid *int64) (DeleteSummary, error) {
	if id == nil && uid == nil {
		return DeleteSummary{}, fmt.Errorf("%w: need id or uid", ErrBadRequest)
	}

	images, err := s.images.GetByIDOrUID(id, uid)
	if err != nil {
		return DeleteSummary{}, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if len(images) == 0 {
		return DeleteSummary{}, ErrNotFound
	}

	err = s.destructive.Submit(func() {
		// only release the flag if this task claimed it; an accepted
		// wipe queued behind us holds its claim until it finishes
		if s.inFlight.CompareAndSwap(false, true) {
			defer s.inFlight.Store(false)
		}
		s.deleteImages(images)
	})
	if err != nil {
		return DeleteSummary{}, err
	}
	return DeleteSummary{Matched: len(images)}, nil
}

// deleteImages runs on the destructive worker. Once accepted it runs to
// completion; per-object failures are counted, not fatal.
func (s *ImageService) deleteImages(images []models.Image) {
	ids := make([]int64, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}

	if err := s.images.SoftDeleteByIDs(ids); err != nil {
		log.Errorf("[ImageService] catalog soft delete failed: %v", err)
		return
	}
	if err := s.postImages.SoftDeleteByImageIDs(ids); err != nil {
		log.Errorf("[ImageService] affinity soft delete failed: %v", err)
	}

	deletedObjects := 0
	totalObjects := 0
	for _, img := range images {
		for _, key := range img.AllPaths() {
			totalObjects++
			if err := s.store.DeleteObject(key); err != nil {
				log.Errorf("[ImageService] s3 delete failed: %s: %v", key, err)
				continue
			}
			deletedObjects++
		}
	}
	log.Infof("[ImageService] deleted %d rows, %d/%d objects", len(images), deletedObjects, totalObjects)

	if err := s.notifier.Notify(); err != nil {
		log.Warnf("[ImageService] republish notify failed: %v", err)
	}
}

// WipeAll is the token-gated destructive wipe. Called without a valid token
// it issues (and logs) a fresh confirmation token and refuses. Called with
// the live token it consumes the token and wipes catalog, affinity map and
// bucket, unless a destructive operation is already running.
func (s *ImageService) WipeAll(token *string) (WipeResult, error) {
	issueToken := func() (string, error) {
		sum := md5.Sum([]byte(uuid.New().String()))
		newToken := hex.EncodeToString(sum[:])
		if err := s.cache.Set(clearTokenKey, newToken, clearTokenTTL); err != nil {
			return "", fmt.Errorf("storing wipe token failed: %w", err)
		}
		log.Infof("[ImageService] wipe token issued: %s, valid for %s", newToken, clearTokenTTL)
		return newToken, nil
	}

	if token == nil {
		log.Info("[ImageService] wipe requested without token, arming")
		newToken, err := issueToken()
		if err != nil {
			return WipeResult{}, err
		}
		return WipeResult{Outcome: WipeArmed, Token: newToken}, nil
	}

	stored, ok, err := s.cache.Get(clearTokenKey)
	if err != nil {
		return WipeResult{}, fmt.Errorf("reading wipe token failed: %w", err)
	}
	if !ok || stored != *token {
		log.Info("[ImageService] wrong or expired wipe token, re-arming")
		newToken, err := issueToken()
		if err != nil {
			return WipeResult{}, err
		}
		return WipeResult{Outcome: WipeArmed, Token: newToken}, nil
	}

	// token matches: consume it so it can never authorize twice
	if err := s.cache.Delete(clearTokenKey); err != nil {
		return WipeResult{}, fmt.Errorf("consuming wipe token failed: %w", err)
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		log.Warn("[ImageService] wipe already in progress, refusing")
		return WipeResult{Outcome: WipeBusy}, nil
	}

	err = s.destructive.Submit(func() {
		defer s.inFlight.Store(false)
		s.wipeEverything()
	})
	if err != nil {
		s.inFlight.Store(false)
		return WipeResult{}, err
	}
	return WipeResult{Outcome: WipeAccepted}, nil
}

func (s *ImageService) wipeEverything() {
	rows, err := s.images.DeleteAllPhysically()
	if err != nil {
		log.Errorf("[ImageService] wipe: catalog delete failed: %v", err)
		return
	}
	mappings, err := s.postImages.DeleteAllPhysically()
	if err != nil {
		log.Errorf("[ImageService] wipe: affinity delete failed: %v", err)
	}
	objects, err := s.store.ClearBucket()
	if err != nil {
		log.Errorf("[ImageService] wipe: bucket clear failed: %v", err)
	}
	log.Infof("[ImageService] wipe done: %d rows, %d mappings, %d objects", rows, mappings, objects)

	if err := s.notifier.Notify(); err != nil {
		log.Warnf("[ImageService] republish notify failed: %v", err)
	}
}

// Status reports the live row count against the bucket object count. A
// divergence between rows*7 and objects points at orphans left by failed
// batch inserts.
func (s *ImageService) Status() (StatusSummary, error) {
	images, err := s.images.Count()
	if err != nil {
		return StatusSummary{}, fmt.Errorf("catalog count failed: %w", err)
	}
	objects, err := s.store.ListObjects()
	if err != nil {
		return StatusSummary{}, fmt.Errorf("bucket listing failed: %w", err)
	}
	return StatusSummary{Images: images, Objects: len(objects)}, nil
}

// InvalidateSelectCache drops every exact-select cache entry.
func (s *ImageService) InvalidateSelectCache() (int, error) {
	return s.cache.DeleteByPrefix(selectKeyPrefix)
}

// InvalidateRandomCache drops every random-select cache entry.
func (s *ImageService) InvalidateRandomCache() (int, error) {
	return s.cache.DeleteByPrefix(randomKeyPrefix)
}

// PurgeDeleted hard-deletes tombstoned catalog rows and stale affinity rows.
// Maintenance only; no lookup path ever returns tombstoned rows.
func (s *ImageService) PurgeDeleted() (int64, error) {
	images, err := s.images.PurgeDeleted()
	if err != nil {
		return 0, fmt.Errorf("catalog purge failed: %w", err)
	}
	mappings, err := s.postImages.PurgeDeleted()
	if err != nil {
		return images, fmt.Errorf("affinity purge failed: %w", err)
	}
	log.Infof("[ImageService] purge done: %d images, %d mappings", images, mappings)
	return images + mappings, nil
}
