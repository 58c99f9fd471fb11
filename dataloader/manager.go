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

package dataloader

import (
	"context"
	"fmt"
	"sync"
)

// Factory creates a DataLoader.
type Factory interface {
	Create() (*DataLoader, error)
}

// The FactoryFunc type is an adapter to allow the use of ordinary functions as Factory.
type FactoryFunc func() (*DataLoader, error)

// Create implements Factory by calling f().
func (f FactoryFunc) Create() (*DataLoader, error) {
	return f()
}

// RegisterInfo names a DataLoader in a Manager and tells how to build it on first use.
type RegisterInfo struct {
	// Key identifies the DataLoader within a Manager.
	Key string

	// Factory creates the DataLoader the first time Key is requested.
	Factory Factory
}

// Manager owns the DataLoaders of one request. Loaders are created lazily by GetOrCreate and live
// as long as the Manager, so whatever they cache is dropped together with the request. The zero
// value is ready to use.
type Manager struct {
	mutex sync.Mutex

	// Loaders by RegisterInfo.Key
	loaders map[string]*DataLoader

	// Loaders in the order they were created; DispatchAll follows this order.
	ordered []*DataLoader
}

// GetOrCreate returns the DataLoader registered under info.Key, creating it with info.Factory if
// this is the first request for the key. The factory runs with the Manager locked and must not call
// back into it.
func (manager *Manager) GetOrCreate(info *RegisterInfo) (*DataLoader, error) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if loader, found := manager.loaders[info.Key]; found {
		return loader, nil
	}

	if info.Factory == nil {
		return nil, fmt.Errorf(`DataLoader factory for "%s" is not provided`, info.Key)
	}

	loader, err := info.Factory.Create()
	if err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, fmt.Errorf(`DataLoader factory for "%s" returns a nil instance which is not `+
			`valid for registration`, info.Key)
	}

	if manager.loaders == nil {
		manager.loaders = map[string]*DataLoader{}
	}
	manager.loaders[info.Key] = loader
	manager.ordered = append(manager.ordered, loader)

	return loader, nil
}

// DispatchAll dispatches the pending keys of every loader in the order the loaders were created.
// Loaders created while dispatching are left for the next call.
func (manager *Manager) DispatchAll(ctx context.Context) {
	manager.mutex.Lock()
	loaders := manager.ordered[:len(manager.ordered):len(manager.ordered)]
	manager.mutex.Unlock()

	for _, loader := range loaders {
		loader.Dispatch(ctx)
	}
}
