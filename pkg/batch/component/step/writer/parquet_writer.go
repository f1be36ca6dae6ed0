package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// parquetParallelism is the number of goroutines parquet-go uses to marshal rows.
const parquetParallelism = 4

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection to upload to.
	StorageRef string `mapstructure:"storageRef"`
	// OutputBaseDir is the object prefix for exported files (e.g., "coffee").
	OutputBaseDir string `mapstructure:"outputBaseDir"`
	// CompressionType is "SNAPPY" (default), "GZIP" or "NONE".
	CompressionType string `mapstructure:"compressionType"`
}

// ParquetWriter is a port.ItemWriter that buffers items by partition and, on Close, writes one
// Parquet file per partition and uploads it to object storage. It ignores the chunk transaction.
// A chunk is buffered whole or not at all, and Close publishes every buffered chunk, including
// chunks written before a later chunk failed.
type ParquetWriter[T any] struct {
	name     string
	config   ParquetWriterConfig
	resolver storage.StorageConnectionResolver
	// itemPrototype is a pointer to a zero value of the row struct, used for schema reflection.
	itemPrototype interface{}
	// partitionKeyFunc returns the Hive-style partition of an item (e.g., "origin=ITALY").
	// Nil writes everything to a single file directly under OutputBaseDir.
	partitionKeyFunc func(T) (string, error)

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	buffered      int
	uploaded      []string
}

// NewParquetWriter creates a ParquetWriter from decoded properties.
func NewParquetWriter[T any](
	name string,
	properties map[string]interface{},
	resolver storage.StorageConnectionResolver,
	itemPrototype interface{},
	partitionKeyFunc func(T) (string, error),
) (*ParquetWriter[T], error) {
	var config ParquetWriterConfig
	if err := configbinder.BindProperties(properties, &config, configbinder.DefaultTagName); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("Failed to decode ParquetWriter properties for %s", name), err, false, false)
	}
	if config.StorageRef == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires 'storageRef' property.", name)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewBatchErrorf("writer", "ParquetWriter '%s' requires 'outputBaseDir' property.", name)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := getCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s': invalid compression type", name), err, false, false)
	}

	return &ParquetWriter[T]{
		name:             name,
		config:           config,
		resolver:         resolver,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears the buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer",
			fmt.Sprintf("Failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name),
			err, false, false)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.buffered = 0
	w.uploaded = nil
	logger.Infof("ParquetWriter '%s' opened. Target storage: %s (%s), base directory: %s", w.name, w.config.StorageRef, conn.Type(), w.config.OutputBaseDir)
	return nil
}

// Write buffers items by partition key. A chunk is buffered whole or not at all.
func (w *ParquetWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	keys := make([]string, len(items))
	if w.partitionKeyFunc != nil {
		for i, item := range items {
			key, err := w.partitionKeyFunc(item)
			if err != nil {
				return exception.NewBatchError("writer", fmt.Sprintf("Failed to get partition key for item in ParquetWriter '%s'", w.name), err, false, false)
			}
			keys[i] = key
		}
	}
	for i, item := range items {
		w.bufferedItems[keys[i]] = append(w.bufferedItems[keys[i]], item)
	}
	w.buffered += len(items)
	logger.Debugf("ParquetWriter '%s' buffered %d items. Total buffered: %d.", w.name, len(items), w.buffered)
	return nil
}

// Close encodes and uploads every partition. Failures are collected per partition so one bad
// partition does not hide the others.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.buffered == 0 {
		logger.Infof("ParquetWriter '%s': No records buffered, skipping Parquet file generation.", w.name)
		return nil
	}
	if w.storageConn == nil {
		return exception.NewBatchErrorf("writer", "ParquetWriter '%s' closed without being opened", w.name)
	}
	codec, _ := getCompressionCodec(w.config.CompressionType)

	keys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var multiErr error
	for _, key := range keys {
		items := w.bufferedItems[key]
		buf, err := w.encode(items, codec)
		if err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("writer",
				fmt.Sprintf("Failed to encode partition '%s' in ParquetWriter '%s'", key, w.name), err, false, false))
			continue
		}

		fileName := fmt.Sprintf("data_%s_%s.parquet", time.Now().Format("20060102150405"), uuid.NewString()[:8])
		objectName := path.Join(w.config.OutputBaseDir, key, fileName)
		if err := w.storageConn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("writer",
				fmt.Sprintf("Failed to upload Parquet file '%s' in ParquetWriter '%s'", objectName, w.name),
				fmt.Errorf("%w: %w", exception.ErrStorageUnavailable, err), false, true))
			continue
		}
		w.uploaded = append(w.uploaded, objectName)
		logger.Infof("ParquetWriter '%s': Uploaded %d rows to %s.", w.name, len(items), objectName)
	}

	w.bufferedItems = make(map[string][]T)
	w.buffered = 0
	return multiErr
}

// Uploaded returns the object names published by the last Close.
func (w *ParquetWriter[T]) Uploaded() []string {
	return append([]string(nil), w.uploaded...)
}

func (w *ParquetWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, parquetParallelism)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec

	// parquet-go panics on schema mismatches instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
