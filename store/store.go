// Package store 提供 core.Store 的实现，接口定义在 core 包。
//
//	var s core.Store = store.NewMemoryStore()
//
// 三种后端：
//   - MemoryStore：进程内，测试/开发用
//   - RedisStore：远程共享，多台机器上的流水线共用一份运行登记
//   - BadgerStore：本地持久化，单机重复运行时保留历史
package store

import (
	"fmt"
	"log/slog"

	"github.com/rushteam/winekit/core"
)

// Config 是存储后端配置（对应 CLI 的 --store / --redis-addr / --badger-dir）
type Config struct {
	Type      string `yaml:"type" json:"type" validate:"omitempty,oneof=none memory redis badger"`
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" json:"redis_db"`
	BadgerDir string `yaml:"badger_dir" json:"badger_dir"`
}

// Open 按配置打开存储；Type 为空或 "none" 时返回 (nil, nil)，表示不登记。
func Open(cfg Config, logger *slog.Logger) (core.Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		s, err := NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "badger":
		bc := DefaultBadgerConfig()
		bc.Path = cfg.BadgerDir
		if cfg.BadgerDir == "" {
			bc = InMemoryBadgerConfig()
		}
		bc.Logger = logger
		s, err := NewBadgerStore(bc)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported,
			fmt.Sprintf("store: unknown type %q", cfg.Type))
	}
}
