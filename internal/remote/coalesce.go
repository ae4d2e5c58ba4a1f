package remote

import "sync"

// folderCache coalesces concurrent EnsureFolder calls per name: the
// first caller runs the lookup while later callers wait on the shared
// in-flight result, so a duplicate remote folder can never be created by
// a race. Resolved ids are cached for the life of the client.
type folderCache struct {
	mu       sync.Mutex
	resolved map[string]string
	inflight map[string]*folderCall
}

type folderCall struct {
	done chan struct{}
	id   string
	err  error
}

func newFolderCache() *folderCache {
	return &folderCache{
		resolved: make(map[string]string),
		inflight: make(map[string]*folderCall),
	}
}

// do returns the cached id for name, or runs fn once and shares its
// result with every concurrent caller.
func (fc *folderCache) do(name string, fn func() (string, error)) (string, error) {
	fc.mu.Lock()
	if id, ok := fc.resolved[name]; ok {
		fc.mu.Unlock()
		return id, nil
	}
	if call, ok := fc.inflight[name]; ok {
		fc.mu.Unlock()
		<-call.done
		return call.id, call.err
	}

	call := &folderCall{done: make(chan struct{})}
	fc.inflight[name] = call
	fc.mu.Unlock()

	call.id, call.err = fn()

	fc.mu.Lock()
	delete(fc.inflight, name)
	if call.err == nil {
		fc.resolved[name] = call.id
	}
	fc.mu.Unlock()

	close(call.done)
	return call.id, call.err
}
