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

package dataloader_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabedeko/graphql-demo/dataloader"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type batchLoadLogger struct {
	// mutex that guards loadCalls
	loadCallsMutex sync.Mutex

	// keys that have been sent to the batch loader
	loadCalls [][]dataloader.Key
}

func (logger *batchLoadLogger) LoadCalls() [][]dataloader.Key {
	mutex := &logger.loadCallsMutex
	mutex.Lock()
	defer mutex.Unlock()
	return logger.loadCalls
}

func (logger *batchLoadLogger) LogKeys(tasks *dataloader.TaskList) {
	keys := tasks.Keys()

	mutex := &logger.loadCallsMutex
	mutex.Lock()
	logger.loadCalls = append(logger.loadCalls, keys)
	mutex.Unlock()
}

// identityBatchLoader implements dataloader.BatchLoader which simply returns key as the loaded
// value. It also logs the batch load keys that sent to the loader.
type identityBatchLoader struct {
	logger batchLoadLogger
}

func (loader *identityBatchLoader) Load(ctx context.Context, tasks *dataloader.TaskList) {
	for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
		task := taskIter.Task
		task.Complete(task.Key())
	}
	loader.logger.LogKeys(tasks)
}

// DataLoader that uses identityBatchLoader for batch load.
type identityLoader struct {
	*dataloader.DataLoader
}

func (loader identityLoader) LoadCalls() [][]dataloader.Key {
	return loader.BatchLoader().(*identityBatchLoader).logger.LoadCalls()
}

func newIdentityLoader(config dataloader.Config) identityLoader {
	Expect(config.BatchLoader).Should(BeNil())
	config.BatchLoader = &identityBatchLoader{}

	loader, err := dataloader.New(config)
	Expect(err).ShouldNot(HaveOccurred())

	return identityLoader{loader}
}

// evenBatchLoader returns key as the loaded value for key that is an even number and an error
// otherwise.
func evenBatchLoader(ctx context.Context, tasks *dataloader.TaskList) {
	for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
		task := taskIter.Task
		if key, ok := task.Key().(int); ok && key%2 == 0 {
			task.Complete(key)
		} else {
			task.SetError(fmt.Errorf("Odd: %+v", task.Key()))
		}
	}
}

func mustLoad(loader *dataloader.DataLoader, key dataloader.Key) dataloader.Thunk {
	thunk, err := loader.Load(context.Background(), key)
	Expect(err).ShouldNot(HaveOccurred())
	return thunk
}

var _ = Describe("DataLoader", func() {
	It("requires a batch loader", func() {
		_, err := dataloader.New(dataloader.Config{})
		Expect(err).Should(MatchError("batch loader is required to construct a DataLoader"))
	})

	It("rejects a nil key", func() {
		loader := newIdentityLoader(dataloader.Config{})
		_, err := loader.Load(context.Background(), nil)
		Expect(err).Should(MatchError("must specify key to identify data to be loaded"))

		_, err = loader.LoadMany(context.Background(), 1, nil)
		Expect(err).Should(MatchError("must specify key to identify data to be loaded"))
	})

	It("builds a really simple data loader", func() {
		loader := newIdentityLoader(dataloader.Config{})
		Expect(mustLoad(loader.DataLoader, 1)()).Should(Equal(1))
	})

	It("supports loading multiple keys in one call", func() {
		loader := newIdentityLoader(dataloader.Config{})

		thunk, err := loader.LoadMany(context.Background(), 1, 2)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunk()).Should(Equal([]interface{}{1, 2}))

		thunk, err = loader.LoadMany(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunk()).Should(BeEmpty())
	})

	It("batches multiple requests", func() {
		loader := newIdentityLoader(dataloader.Config{})

		thunk1 := mustLoad(loader.DataLoader, 1)
		thunk2 := mustLoad(loader.DataLoader, 2)
		Expect(loader.LoadCalls()).Should(BeEmpty())

		Expect(thunk1()).Should(Equal(1))
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{1, 2}}))

		Expect(thunk2()).Should(Equal(2))
		Expect(loader.LoadCalls()).Should(HaveLen(1))
	})

	It("respects max batch size", func() {
		loader := newIdentityLoader(dataloader.Config{
			MaxBatchSize: 2,
		})

		thunks := []dataloader.Thunk{
			mustLoad(loader.DataLoader, 1),
			mustLoad(loader.DataLoader, 2),
			mustLoad(loader.DataLoader, 3),
		}
		for i, thunk := range thunks {
			Expect(thunk()).Should(Equal(i + 1))
		}

		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{1, 2}, {3}}))
	})

	It("coalesces identical requests", func() {
		loader := newIdentityLoader(dataloader.Config{})

		thunk1a := mustLoad(loader.DataLoader, 1)
		thunk1b := mustLoad(loader.DataLoader, 1)

		Expect(thunk1a()).Should(Equal(1))
		Expect(thunk1b()).Should(Equal(1))
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{1}}))
	})

	It("caches repeated requests", func() {
		loader := newIdentityLoader(dataloader.Config{})

		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))
		Expect(mustLoad(loader.DataLoader, "B")()).Should(Equal("B"))
		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))

		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"A"}, {"B"}}))
	})

	It("sends duplicate keys to the batch loader when cache is disabled", func() {
		loader := newIdentityLoader(dataloader.Config{
			CacheMap: dataloader.NoCacheMap,
		})

		thunkA := mustLoad(loader.DataLoader, "A")
		thunkB := mustLoad(loader.DataLoader, "A")
		Expect(thunkA()).Should(Equal("A"))
		Expect(thunkB()).Should(Equal("A"))

		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"A", "A"}}))
	})

	It("clears single value in loader", func() {
		loader := newIdentityLoader(dataloader.Config{})

		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))
		Expect(mustLoad(loader.DataLoader, "B")()).Should(Equal("B"))

		loader.Clear("A")

		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))
		Expect(mustLoad(loader.DataLoader, "B")()).Should(Equal("B"))
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"A"}, {"B"}, {"A"}}))
	})

	It("clears all values in loader", func() {
		loader := newIdentityLoader(dataloader.Config{})

		thunks, err := loader.LoadMany(context.Background(), "A", "B")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunks()).Should(Equal([]interface{}{"A", "B"}))

		loader.ClearAll()

		thunks, err = loader.LoadMany(context.Background(), "A", "B")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunks()).Should(Equal([]interface{}{"A", "B"}))
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"A", "B"}, {"A", "B"}}))
	})

	It("allows priming the cache", func() {
		loader := newIdentityLoader(dataloader.Config{})

		Expect(loader.Prime("A", "primed A")).Should(Succeed())

		thunks, err := loader.LoadMany(context.Background(), "A", "B")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunks()).Should(Equal([]interface{}{"primed A", "B"}))
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"B"}}))
	})

	It("does not prime keys that already exist", func() {
		loader := newIdentityLoader(dataloader.Config{})

		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))
		Expect(loader.Prime("A", "X")).Should(Succeed())
		Expect(mustLoad(loader.DataLoader, "A")()).Should(Equal("A"))
	})

	It("allows priming the cache with an error", func() {
		loader := newIdentityLoader(dataloader.Config{})

		Expect(loader.PrimeError(1, errors.New("Error: 1"))).Should(Succeed())

		_, err := mustLoad(loader.DataLoader, 1)()
		Expect(err).Should(MatchError("Error: 1"))
		Expect(loader.LoadCalls()).Should(BeEmpty())
	})

	It("resolves to error to indicate failure", func() {
		loader, err := dataloader.New(dataloader.Config{
			BatchLoader: dataloader.BatchLoadFunc(evenBatchLoader),
		})
		Expect(err).ShouldNot(HaveOccurred())

		thunk1 := mustLoad(loader, 1)
		thunk2 := mustLoad(loader, 2)

		_, err = thunk1()
		Expect(err).Should(MatchError("Odd: 1"))
		Expect(thunk2()).Should(Equal(2))

		thunks, err := loader.LoadMany(context.Background(), 2, 3)
		Expect(err).ShouldNot(HaveOccurred())
		_, err = thunks()
		Expect(err).Should(MatchError("Odd: 3"))
	})

	It("fails tasks left uncompleted by the batch loader", func() {
		loader, err := dataloader.New(dataloader.Config{
			BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
				// Complete the first task only.
				tasks.Begin().Complete("first")
			}),
		})
		Expect(err).ShouldNot(HaveOccurred())

		thunk1 := mustLoad(loader, 1)
		thunk2 := mustLoad(loader, 2)

		Expect(thunk1()).Should(Equal("first"))
		_, err = thunk2()
		Expect(err).Should(MatchError(ContainSubstring(
			"must complete every given data loading task with either a value or an error but it " +
				"doesn't complete task that loads data at key 2")))
	})

	It("completes a task at most once", func() {
		loader, err := dataloader.New(dataloader.Config{
			BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
				task := tasks.Begin().Task
				Expect(task.Completed()).Should(BeFalse())
				Expect(task.Complete(1)).Should(Succeed())
				Expect(task.Completed()).Should(BeTrue())
				Expect(task.SetError(errors.New("late"))).Should(MatchError(
					"task was already completed with a value (1) but want to accept an error (late)"))
			}),
		})
		Expect(err).ShouldNot(HaveOccurred())

		Expect(mustLoad(loader, "K")()).Should(Equal(1))
	})

	It("dispatches queued tasks on demand", func() {
		loader := newIdentityLoader(dataloader.Config{})

		thunk := mustLoad(loader.DataLoader, "A")
		mustLoad(loader.DataLoader, "B")

		loader.Dispatch(context.Background())
		Expect(loader.LoadCalls()).Should(Equal([][]dataloader.Key{{"A", "B"}}))

		// Dispatching an empty queue is a no-op.
		loader.Dispatch(context.Background())
		Expect(loader.LoadCalls()).Should(HaveLen(1))

		Expect(thunk()).Should(Equal("A"))
	})

	It("passes context from the thunk that triggers the dispatch", func() {
		type ctxKey struct{}

		var seen interface{}
		loader, err := dataloader.New(dataloader.Config{
			BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
				seen = ctx.Value(ctxKey{})
				for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
					taskIter.Complete(nil)
				}
			}),
		})
		Expect(err).ShouldNot(HaveOccurred())

		ctx := context.WithValue(context.Background(), ctxKey{}, "request")
		thunk, err := loader.Load(ctx, 1)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunk()).Should(BeNil())
		Expect(seen).Should(Equal("request"))
	})

	It("serves concurrent callers with a single batch", func() {
		loader := newIdentityLoader(dataloader.Config{})

		const numKeys = 32
		thunks := make([]dataloader.Thunk, numKeys)
		for i := range thunks {
			thunks[i] = mustLoad(loader.DataLoader, i)
		}

		var wg sync.WaitGroup
		for i, thunk := range thunks {
			wg.Add(1)
			go func(i int, thunk dataloader.Thunk) {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(thunk()).Should(Equal(i))
			}(i, thunk)
		}
		wg.Wait()

		Expect(loader.LoadCalls()).Should(HaveLen(1))
		Expect(loader.LoadCalls()[0]).Should(HaveLen(numKeys))
	})

	It("counts tasks in a batch", func() {
		var sizes []int
		loader, err := dataloader.New(dataloader.Config{
			MaxBatchSize: 3,
			BatchLoader: dataloader.BatchLoadFunc(func(ctx context.Context, tasks *dataloader.TaskList) {
				sizes = append(sizes, tasks.Len())
				for taskIter, taskEnd := tasks.Begin(), tasks.End(); taskIter != taskEnd; taskIter = taskIter.Next() {
					taskIter.Complete(taskIter.Key())
				}
			}),
		})
		Expect(err).ShouldNot(HaveOccurred())

		thunk, err := loader.LoadMany(context.Background(), 1, 2, 3, 4, 5, 6, 7)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(thunk()).Should(HaveLen(7))
		Expect(sizes).Should(Equal([]int{3, 3, 1}))
	})
})
