package table

import (
	"sync"

	"github.com/google/uuid"

	"github.com/palemoky/seka/internal/protocol"
)

// Registry 管理服务器内的全部牌桌
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	deps   Deps
}

// NewRegistry 创建牌桌注册表
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		tables: make(map[string]*Table),
		deps:   deps,
	}
}

// Create 创建并登记一张新牌桌。id 为空时自动生成
func (r *Registry) Create(id, name string, stake int) *Table {
	if id == "" {
		id = uuid.NewString()
	}
	t := New(id, name, stake, r.deps)

	r.mu.Lock()
	r.tables[id] = t
	r.mu.Unlock()
	return t
}

// Get 按 ID 查找牌桌
func (r *Registry) Get(id string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[id]
	return t, ok
}

// Remove 注销牌桌
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.tables, id)
	r.mu.Unlock()
}

// List 大厅用的牌桌摘要列表
func (r *Registry) List() []protocol.TableSummary {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	maxPlayers := r.deps.MaxPlayers
	r.mu.RUnlock()

	list := make([]protocol.TableSummary, 0, len(tables))
	for _, t := range tables {
		list = append(list, protocol.TableSummary{
			ID:         t.ID,
			Name:       t.Name,
			Stake:      t.BaseStake,
			Players:    t.PlayerCount(),
			MaxPlayers: maxPlayers,
		})
	}
	return list
}

// Count 当前牌桌数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
