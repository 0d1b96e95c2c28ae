package service

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/ShiinaKin/random-img/app/models"
	"github.com/ShiinaKin/random-img/app/repository"
	"github.com/ShiinaKin/random-img/internal/pkg/imageprocessor"
	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
	"github.com/ShiinaKin/random-img/internal/pkg/upload"
)

// UploadService ingests archives: decode, generate the variant ladder,
// store every rung, then batch-insert the catalog rows. Archives run on a
// small bounded pool; a saturated pool rejects immediately.
type UploadService struct {
	images    repository.ImageRepository
	store     ObjectStore
	notifier  Notifier
	ids       IDGenerator
	pool      *taskpool.Pool
	authority string
}

// NewUploadService wires the upload pipeline. authority is the URL prefix
// written into every catalog row.
func NewUploadService(
	images repository.ImageRepository,
	store ObjectStore,
	notifier Notifier,
	ids IDGenerator,
	pool *taskpool.Pool,
	authority string,
) *UploadService {
	return &UploadService{
		images:    images,
		store:     store,
		notifier:  notifier,
		ids:       ids,
		pool:      pool,
		authority: authority,
	}
}

// HandleUpload validates the archive layout synchronously, then processes
// the batch on the upload pool. A malformed archive is rejected wholesale
// before any write; a saturated pool returns taskpool.ErrSaturated.
func (s *UploadService) HandleUpload(archive []byte) error {
	files, err := upload.ParseArchive(archive)
	if err != nil {
		return err
	}
	return s.pool.Submit(func() {
		count := s.processFiles(files)
		log.Infof("[UploadService] upload done, imgCnt: %d/%d", count, len(files))
		if err := s.notifier.Notify(); err != nil {
			log.Warnf("[UploadService] republish notify failed: %v", err)
		}
	})
}

// HandleRemoteUpload drains up to limit staged archives from the staging
// bucket. Archives that fail stay staged for a later retry; processed ones
// are removed.
func (s *UploadService) HandleRemoteUpload(limit int) error {
	if limit <= 0 {
		limit = 1
	}
	return s.pool.Submit(func() {
		keys, err := s.store.ListStaging()
		if err != nil {
			log.Errorf("[UploadService] listing staging bucket failed: %v", err)
			return
		}
		if len(keys) > limit {
			keys = keys[:limit]
		}
		log.Infof("[UploadService] %d staged archives to process", len(keys))

		total := 0
		for _, key := range keys {
			count, err := s.processStagedArchive(key)
			if err != nil {
				log.Errorf("[UploadService] %s upload failed: %v", key, err)
				continue
			}
			if err := s.store.DeleteStaging(key); err != nil {
				log.Errorf("[UploadService] removing staged archive %s failed: %v", key, err)
			}
			total += count
		}
		log.Infof("[UploadService] total success upload img: %d", total)
		if err := s.notifier.Notify(); err != nil {
			log.Warnf("[UploadService] republish notify failed: %v", err)
		}
	})
}

func (s *UploadService) processStagedArchive(key string) (int, error) {
	data, err := s.store.GetStaging(key)
	if err != nil {
		return 0, err
	}
	files, err := upload.ParseArchive(data)
	if err != nil {
		return 0, err
	}
	return s.processFiles(files), nil
}

// processFiles runs the per-asset pipeline. One asset's failure never
// aborts its siblings; fully stored assets are committed in one batch
// insert at the end.
func (s *UploadService) processFiles(files []upload.File) int {
	staged := make([]models.Image, 0, len(files))

	for _, file := range files {
		row, ok := s.processFile(file)
		if !ok {
			continue
		}
		staged = append(staged, row)
	}

	if len(staged) == 0 {
		return 0
	}
	if err := s.images.BatchInsert(staged); err != nil {
		// objects for this batch are already durable; rows can be
		// re-created by re-uploading, orphaned objects are accepted
		log.Errorf("[UploadService] catalog batch insert failed: %v", err)
		return 0
	}
	return len(staged)
}

// processFile stores the original plus every ladder rung and stages the
// catalog row. The row is only staged once all object writes succeeded.
func (s *UploadService) processFile(file upload.File) (models.Image, bool) {
	img, err := imageprocessor.Decode(file.Content)
	if err != nil {
		log.Errorf("[UploadService] decoding %s failed, skipping: %v", file.Path, err)
		return models.Image{}, false
	}
	width := img.Bounds().Dx()

	variants, err := imageprocessor.GenerateVariants(img)
	if err != nil {
		log.Errorf("[UploadService] variant generation for %s failed, skipping: %v", file.Path, err)
		return models.Image{}, false
	}

	if err := s.store.PutObject(file.Path, file.Content, file.ModTime); err != nil {
		log.Errorf("[UploadService] s3 upload failed %s, skipping asset: %v", file.Path, err)
		return models.Image{}, false
	}
	variantPaths := make(map[int]string, len(imageprocessor.LadderWidths))
	for _, rung := range imageprocessor.LadderWidths {
		key := imageprocessor.VariantPath(file.Path, rung)
		if err := s.store.PutObject(key, variants[rung], file.ModTime); err != nil {
			log.Errorf("[UploadService] s3 upload failed %s, skipping asset: %v", key, err)
			return models.Image{}, false
		}
		variantPaths[rung] = key
	}

	return models.Image{
		ID:            s.ids.NextID(),
		UID:           file.UID,
		PID:           file.PID,
		Authority:     s.authority,
		OriginalWidth: width,
		OriginalPath:  file.Path,
		W320Path:      variantPaths[320],
		W640Path:      variantPaths[640],
		W960Path:      variantPaths[960],
		W1280Path:     variantPaths[1280],
		W1600Path:     variantPaths[1600],
		W1920Path:     variantPaths[1920],
	}, true
}
