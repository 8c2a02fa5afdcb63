package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotConnected is returned by reads while the database is offline
var ErrNotConnected = stderrors.New("database not connected")

// DataManagerOptions contains configuration for a DataManager
// Cache expiry comes from the TTL table of the cache client.
type DataManagerOptions struct {
	// Timeout bounds each database call
	Timeout time.Duration
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		Timeout: 5 * time.Second,
	}
}

// DataManager provides cache-aside access to a MongoDB collection
type DataManager[T any] struct {
	name       string
	dbInstance *Database
	cache      *cache.Client
	options    DataManagerOptions
}

// NewDataManager creates a new DataManager for a collection. cache may be nil.
func NewDataManager[T any](collectionName string, db *Database, c *cache.Client, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
		if dmOptions.Timeout == 0 {
			dmOptions.Timeout = 5 * time.Second
		}
	}

	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		cache:      c,
		options:    dmOptions,
	}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.name
}

// CacheKey joins parts into a cache key such as
// "AnonymousRepository:base_settings:123"
func CacheKey(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// generateCacheKey creates a unique, deterministic key from a query
// It sorts the keys to ensure consistent ordering regardless of map iteration order
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.name, strings.Join(parts, ","))
}

func (dm *DataManager[T]) collection() *mongo.Collection {
	if !dm.dbInstance.Connected() {
		return nil
	}
	return dm.dbInstance.GetCollection(dm.name)
}

func (dm *DataManager[T]) cacheEnabled() bool {
	return dm.cache.Available()
}

// storeCached writes v under key, ignoring cache failures
func (dm *DataManager[T]) storeCached(ctx context.Context, key string, v *T) {
	if !dm.cacheEnabled() || key == "" {
		return
	}
	if err := dm.cache.SetJSON(ctx, key, v); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo cachear '%s': %v", key, err), "DataManager")
	}
}

// Invalidate removes cached entries
func (dm *DataManager[T]) Invalidate(ctx context.Context, keys ...string) {
	if !dm.cacheEnabled() || len(keys) == 0 {
		return
	}
	if err := dm.cache.Delete(ctx, keys...); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo invalidar la caché: %v", err), "DataManager")
	}
}

// Get retrieves a document from cache or database. A missing document is
// reported as (nil, nil).
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	return dm.GetCached(ctx, dm.generateCacheKey(query), query)
}

// GetCached is Get with an explicit cache key
func (dm *DataManager[T]) GetCached(ctx context.Context, key string, query bson.M) (*T, error) {
	if dm.cacheEnabled() && key != "" {
		var cached T
		err := dm.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !stderrors.Is(err, cache.ErrNotFound) {
			logger.Debug(fmt.Sprintf("Lectura de caché fallida para '%s': %v", key, err), "DataManager")
		}
	}

	result, err := dm.FindOne(ctx, query)
	if err != nil || result == nil {
		return result, err
	}

	dm.storeCached(ctx, key, result)
	return result, nil
}

// FindOne reads a single document bypassing the cache
func (dm *DataManager[T]) FindOne(ctx context.Context, query bson.M) (*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, dm.options.Timeout)
	defer cancel()

	var result T
	err := col.FindOne(ctx, query).Decode(&result)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s): %v", dm.name, err), "DataManager")
		return nil, err
	}
	return &result, nil
}

// GetAll retrieves all documents matching a query from the database
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M) ([]*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 2*dm.options.Timeout)
	defer cancel()

	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// buildUpsert merges update with a $setOnInsert built from onInsert. Fields
// touched by any update operator, or fixed by the filter, are dropped from
// $setOnInsert since MongoDB rejects conflicting paths.
func buildUpsert(query, update, onInsert bson.M) bson.M {
	doc := bson.M{}
	touched := map[string]bool{}
	for op, fields := range update {
		doc[op] = fields
		if m, ok := fields.(bson.M); ok {
			for f := range m {
				touched[f] = true
			}
		}
	}
	for f := range query {
		touched[f] = true
	}

	insert := bson.M{}
	for f, v := range onInsert {
		if !touched[f] {
			insert[f] = v
		}
	}
	if len(insert) > 0 {
		doc["$setOnInsert"] = insert
	}
	return doc
}

// Upsert applies update to the document matching query, creating it with
// onInsert defaults when missing, and invalidates the cached copies. The
// generated cache key for query is always invalidated; extra keys may be
// passed. While offline the write is queued and (nil, nil) is returned.
func (dm *DataManager[T]) Upsert(ctx context.Context, query, update, onInsert bson.M, invalidate ...string) (*T, error) {
	keys := append([]string{dm.generateCacheKey(query)}, invalidate...)
	defer dm.Invalidate(ctx, keys...)

	doc := buildUpsert(query, update, onInsert)

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpUpdate,
			Data:           doc,
		})
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dm.options.Timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, doc, opts).Decode(&result); err != nil {
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			logger.Error("Error en 'upsert' con DB conectada. Encolando por seguridad.", "DataManager")
			dm.dbInstance.AddToWriteQueue(QueuedOperation{
				CollectionName: dm.name,
				Query:          query,
				Operation:      OpUpdate,
				Data:           doc,
			})
		}
		return nil, err
	}
	return &result, nil
}

// Set updates or inserts a document with $set
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data bson.M, invalidate ...string) (*T, error) {
	return dm.Upsert(ctx, query, bson.M{"$set": data}, nil, invalidate...)
}

// Update applies update to an existing document without creating one
func (dm *DataManager[T]) Update(ctx context.Context, query, update bson.M, invalidate ...string) error {
	keys := append([]string{dm.generateCacheKey(query)}, invalidate...)
	defer dm.Invalidate(ctx, keys...)

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando actualización para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpUpdate,
			Data:           update,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dm.options.Timeout)
	defer cancel()

	_, err := col.UpdateOne(ctx, query, update)
	return err
}

// Insert stores a new document
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando inserción para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Operation:      OpInsert,
			Data:           doc,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dm.options.Timeout)
	defer cancel()

	_, err := col.InsertOne(ctx, doc)
	return err
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M, invalidate ...string) error {
	dm.Invalidate(ctx, append([]string{dm.generateCacheKey(query)}, invalidate...)...)

	col := dm.collection()
	if col == nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpDelete,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dm.options.Timeout)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		logger.Error("Error en 'delete' con DB conectada. Encolando por seguridad.", "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpDelete,
		})
		return err
	}

	return nil
}
