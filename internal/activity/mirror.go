// internal/activity/mirror.go
package activity

import (
	"context"
	"strconv"

	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/metrics"
	"merchant-triggers/internal/models"
)

// DocumentIndexer is satisfied by *database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

// MirroredLog records to the primary Log and then copies each stored row into
// an Elasticsearch index for dashboards. Index failures never fail the write.
type MirroredLog struct {
	Log
	indexer DocumentIndexer
	index   string
	logger  logger.Logger
}

func NewMirroredLog(primary Log, indexer DocumentIndexer, index string, log logger.Logger) *MirroredLog {
	return &MirroredLog{
		Log:     primary,
		indexer: indexer,
		index:   index,
		logger:  logger.ForComponent(log, "activity-mirror"),
	}
}

func (m *MirroredLog) Record(ctx context.Context, row *models.ActionActivity) error {
	if err := m.Log.Record(ctx, row); err != nil {
		return err
	}

	if err := m.indexer.IndexDocument(ctx, m.index, strconv.FormatInt(row.ID, 10), row); err != nil {
		metrics.ActivityMirrorFailures.Inc()
		m.logger.Warn("failed to mirror activity row", map[string]interface{}{
			"activityId": row.ID,
			"index":      m.index,
			"error":      err.Error(),
		})
	}
	return nil
}
