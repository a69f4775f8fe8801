package archive

import (
	"bytes"
	"context"
	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/exceptions"
	"sync"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

var (
	archiveServiceInstance contracts.ArchiveStorage
	onceArchiveService     sync.Once
)

type archiveService struct {
	client     *minio.Client
	bucketName string
	Log        *zap.Logger
}

func NewArchiveService(client *minio.Client, driverConfig *config.DriverConfig, logger *zap.Logger) contracts.ArchiveStorage {
	onceArchiveService.Do(func() {
		instance := &archiveService{
			client:     client,
			bucketName: driverConfig.Minio.BucketName,
			Log:        logger,
		}
		archiveServiceInstance = instance
	})
	return archiveServiceInstance
}

// StoreReconciliationRun keeps the emitted frame sequence of one run as a
// single object, so every reconciliation ever sent can be replayed for audit.
func (s *archiveService) StoreReconciliationRun(ctx context.Context, objectName string, content []byte) error {
	reader := bytes.NewReader(content)
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, int64(len(content)), minio.PutObjectOptions{
		ContentType: constvars.MIMEApplicationXML,
	})
	if err != nil {
		s.Log.Error("archiveService.StoreReconciliationRun error uploading object",
			zap.String("object_name", objectName),
			zap.Error(err),
		)
		return exceptions.ErrArchiveUpload(err)
	}

	s.Log.Info("archiveService.StoreReconciliationRun stored run",
		zap.String("object_name", objectName),
		zap.Int("size_bytes", len(content)),
	)
	return nil
}
