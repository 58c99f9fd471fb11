/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package dataloader batches and caches data loading requested by GraphQL resolvers.
//
// Load enqueues a key and returns a Thunk. github.com/graphql-go/graphql resolves sibling fields
// before it evaluates thunks returned from their resolvers, so by the time the first thunk is
// called, all keys of one level of the query are sitting in the queue and are sent to the
// BatchLoader together.
package dataloader

import (
	"context"
	"errors"
	"sync"
)

// Key is an unique identifier of a value loaded by a DataLoader.
type Key interface{}

// Thunk evaluates to the loaded value. It has the exact function type that
// github.com/graphql-go/graphql recognizes as a deferred resolver result.
type Thunk = func() (interface{}, error)

type taskQueue struct {
	// DataLoader that creates and executes the tasks in the queue.
	loader *DataLoader

	// tasks stored in a linked list
	tasks TaskList
}

func newTaskQueue(loader *DataLoader) *taskQueue {
	return &taskQueue{
		loader: loader,
	}
}

func (queue *taskQueue) Enqueue(key Key) *Task {
	// Create a task.
	task := newTask(queue, key)

	// Try to insert it into cache.
	cacheMap := queue.loader.cacheMap
	if cacheMap != nil {
		cachedTask := cacheMap.Set(task)
		if cachedTask != task {
			// Task for the given key found in cache which has been enqueued. Return the cache one without
			// enqueuing.
			return cachedTask
		}
	}

	// Enqueue the task.
	queue.tasks.push(task)

	return task
}

func (queue *taskQueue) Empty() bool {
	return queue.tasks.Empty()
}

// A DataLoader loads data from a data backend with unique keys such as the id column of a SQL
// table.
type DataLoader struct {
	config *Config

	// Lock that guard accesses to queue
	queueMutex sync.Mutex

	// Queue containing the pending tasks for data loading
	queue *taskQueue

	// cacheMap caches loaded data. It is nil if the cache is disabled.
	cacheMap CacheMap
}

var (
	errMissingBatchLoader = errors.New("batch loader is required to construct a DataLoader")
	errMissingKey         = errors.New("must specify key to identify data to be loaded")
)

// New creates a DataLoader instance from given config.
func New(config Config) (*DataLoader, error) {
	// Check config.
	if config.BatchLoader == nil {
		return nil, errMissingBatchLoader
	}

	// Determine storage for cache.
	cacheMap := config.CacheMap
	if cacheMap == nil {
		// Create a DefaultCacheMap instance.
		cacheMap = &DefaultCacheMap{}
	} else if cacheMap == NoCacheMap {
		cacheMap = nil
	}

	loader := &DataLoader{
		config:   &config,
		cacheMap: cacheMap,
	}
	loader.queue = newTaskQueue(loader)

	return loader, nil
}

// BatchLoader returns loader.config.BatchLoader.
func (loader *DataLoader) BatchLoader() BatchLoader {
	return loader.config.BatchLoader
}

// Load loads a data identified by the key. It returns a Thunk for the value represented by that
// key. ctx is given to the BatchLoader when the thunk triggers the dispatch.
func (loader *DataLoader) Load(ctx context.Context, key Key) (Thunk, error) {
	task, err := loader.load(key)
	if err != nil {
		return nil, err
	}
	return task.thunk(ctx), nil
}

func (loader *DataLoader) load(key Key) (*Task, error) {
	if key == nil {
		return nil, errMissingKey
	}

	// Check cache.
	cacheMap := loader.cacheMap
	if cacheMap != nil {
		if task := cacheMap.Get(key); task != nil {
			return task, nil
		}
	}

	// Acquire the lock to enqueue the task.
	queueMutex := &loader.queueMutex
	queueMutex.Lock()
	task := loader.queue.Enqueue(key)
	queueMutex.Unlock()

	return task, nil
}

// LoadMany loads collection of data identified by multiple keys. It returns a Thunk that evaluates
// to a []interface{} holding the values in the order of keys. The thunk fails with the first error
// encountered.
func (loader *DataLoader) LoadMany(ctx context.Context, keys ...Key) (Thunk, error) {
	tasks := make([]*Task, len(keys))
	for i, key := range keys {
		task, err := loader.load(key)
		if err != nil {
			return nil, err
		}
		tasks[i] = task
	}

	return func() (interface{}, error) {
		values := make([]interface{}, len(tasks))
		for i, task := range tasks {
			value, err := task.wait(ctx)
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return values, nil
	}, nil
}

// Dispatch dispatches jobs to load data specified by tasks in current queue as of the time this
// function is called.
func (loader *DataLoader) Dispatch(ctx context.Context) {
	loader.queueMutex.Lock()
	queue := loader.queue
	loader.queueMutex.Unlock()

	loader.dispatchQueue(ctx, queue)
}

// dispatchQueue tries to dispatch jobs to perform batch load for given queue. Note that the work
// is performed by the one who successfully "detaches" the queue from the loader.
func (loader *DataLoader) dispatchQueue(ctx context.Context, queue *taskQueue) {
	// Acquire the lock to detach the queue from the loader.
	queueMutex := &loader.queueMutex
	queueMutex.Lock()

	// Return quickly if someone has dispatched the given queue or the queue is empty.
	if queue != loader.queue || queue.Empty() {
		queueMutex.Unlock()
		return
	}

	// Replace with an empty queue.
	loader.queue = newTaskQueue(loader)
	queueMutex.Unlock()

	maxBatchSize := loader.config.MaxBatchSize
	if maxBatchSize == 0 {
		loader.runBatch(ctx, queue.tasks)
		return
	}

	var (
		tasks = queue.tasks
		// tasks will be split into some small sub-lists each of which has at most maxBatchSize tasks.
		// firstTask marks the first task of the sub-list in current batch.
		firstTask = tasks.first
		task      = firstTask
		counter   = maxBatchSize
	)

	for task != nil {
		nextTask := task.next

		counter--
		if counter == 0 {
			loader.runBatch(ctx, TaskList{
				first: firstTask,
				last:  task,
			})

			// Reset counter.
			counter = maxBatchSize
			// Next batch starts from nextTask.
			firstTask = nextTask
		}

		// Move to the next task.
		task = nextTask
	}

	// Dispatch the last batch.
	if firstTask != nil {
		loader.runBatch(ctx, TaskList{
			first: firstTask,
		})
	}
}

// runBatch runs one batch load with the current goroutine.
func (loader *DataLoader) runBatch(ctx context.Context, tasks TaskList) {
	job := &batchLoadJob{
		loader: loader,
		tasks:  tasks,
	}
	job.Run(ctx)
}

// Clear the value for the given key from the cache.
func (loader *DataLoader) Clear(key Key) {
	cacheMap := loader.cacheMap
	if cacheMap != nil {
		cacheMap.Delete(key)
	}
}

// ClearAll clears the entire cache.
func (loader *DataLoader) ClearAll() {
	cacheMap := loader.cacheMap
	if cacheMap != nil {
		cacheMap.Clear()
	}
}

// Prime adds the provided key and value to the cache. If the key already exists, no change is made.
func (loader *DataLoader) Prime(key Key, value interface{}) error {
	cacheMap := loader.cacheMap
	if cacheMap != nil {
		task := newTask(nil, key)
		if err := task.Complete(value); err != nil {
			return err
		}
		cacheMap.Set(task)
	}

	return nil
}

// PrimeError adds the provided key with an error value to the cache. If the key already exists, no
// change is made.
func (loader *DataLoader) PrimeError(key Key, err error) error {
	cacheMap := loader.cacheMap
	if cacheMap != nil {
		task := newTask(nil, key)
		if err := task.SetError(err); err != nil {
			return err
		}
		cacheMap.Set(task)
	}

	return nil
}
