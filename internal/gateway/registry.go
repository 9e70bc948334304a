package gateway

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 网关适配器注册表
//
// 只在启动时注册，运行期只读；缺失或配置不完整的网关不注册，
// 对应的结账请求会以上游配置错误拒绝。
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register 注册网关适配器
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := adapter.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("gateway %s already registered", name)
	}
	r.adapters[name] = adapter
	return nil
}

// Get 按名称查找适配器
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Names 返回已注册网关名称（排序后）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
