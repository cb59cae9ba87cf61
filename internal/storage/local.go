package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/run-bigpig/traefin/internal/pkg/paths"
)

// 持久化键名，与前端约定保持一致
const (
	KeyToken            = "token"
	KeyRefreshToken     = "refreshToken"
	KeyUsername         = "username"
	KeyLastBacktest     = "last_backtest"
	KeyDefaultGroupName = "default_group_name"
	KeyAIPanelWidth     = "ai_panel_width"
)

const storeFileName = "local.json"

// Store 本地键值存储
// 承担浏览器端 localStorage 的角色：登录凭证、最近一次回测报告、
// 默认分组显示名等都写在这里。整个文件一次性原子写入，不存在半写状态。
type Store struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// Open 打开默认数据目录下的本地存储
func Open() (*Store, error) {
	return NewStore(paths.EnsureDataDir())
}

// NewStore 打开指定目录下的本地存储，文件不存在时视为空存储
func NewStore(dir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(dir, storeFileName),
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("读取本地存储失败: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// 文件损坏时从空状态重新开始，不让客户端无法启动
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// GetString 读取字符串值，键不存在时返回 false
func (s *Store) GetString(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

// SetString 写入字符串值并落盘
func (s *Store) SetString(key, value string) error {
	raw, _ := json.Marshal(value)
	return s.SetRaw(key, raw)
}

// GetRaw 读取原始 JSON 值
func (s *Store) GetRaw(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, false
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, true
}

// SetRaw 原样写入 JSON 值并落盘
func (s *Store) SetRaw(key string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = raw
	return s.flushLocked()
}

// SetMany 批量写入多个字符串值，仅落盘一次
func (s *Store) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		raw, _ := json.Marshal(v)
		s.data[k] = raw
	}
	return s.flushLocked()
}

// Delete 删除若干键，键不存在时不报错
func (s *Store) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flushLocked()
}

// flushLocked 整体序列化后原子写入（临时文件 + rename）
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化本地存储失败: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "local-*.json.tmp")
	if err != nil {
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	return nil
}
