package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/model"
)

// DefaultKeyPrefix 运行登记在存储中的 key 前缀
const DefaultKeyPrefix = "winekit:run:"

// ModelRecord 是训练阶段登记的模型信息
type ModelRecord struct {
	ModelPath   string          `json:"model_path"`
	BundlePath  string          `json:"bundle_path,omitempty"`
	NEstimators int             `json:"n_estimators"`
	MaxFeatures string          `json:"max_features"`
	Seed        int64           `json:"seed"`
	TrainRows   int             `json:"train_rows"`
	CV          *model.CVResult `json:"cv,omitempty"`
}

// RunRecord 是一次流水线运行的登记信息
type RunRecord struct {
	RunID     string       `json:"run_id"`
	Model     *ModelRecord `json:"model,omitempty"`
	Report    *Report      `json:"report,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Registry 在 core.Store 上维护运行登记：key = prefix + run_id，value = RunRecord JSON。
type Registry struct {
	store  core.Store
	prefix string
	now    func() time.Time
}

// NewRegistry 创建运行登记，prefix 为空时使用 DefaultKeyPrefix
func NewRegistry(store core.Store, prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Registry{store: store, prefix: prefix, now: time.Now}
}

func (r *Registry) key(runID string) string { return r.prefix + runID }

// Get 读取一次运行的登记，不存在时返回 core.ErrStoreNotFound
func (r *Registry) Get(ctx context.Context, runID string) (*RunRecord, error) {
	data, err := r.store.Get(ctx, r.key(runID))
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse run record %s: %w", runID, err)
	}
	return &rec, nil
}

// update 读取-修改-写回；记录不存在时新建。各阶段串行执行，不需要 CAS。
func (r *Registry) update(ctx context.Context, runID string, mutate func(*RunRecord)) error {
	rec, err := r.Get(ctx, runID)
	if err != nil {
		if !errors.Is(err, core.ErrStoreNotFound) {
			return err
		}
		rec = &RunRecord{RunID: runID, CreatedAt: r.now().UTC()}
	}
	mutate(rec)
	rec.UpdatedAt = r.now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, r.key(runID), data)
}

// RecordModel 登记训练产出的模型
func (r *Registry) RecordModel(ctx context.Context, runID string, m *ModelRecord) error {
	return r.update(ctx, runID, func(rec *RunRecord) { rec.Model = m })
}

// RecordReport 登记评估报告
func (r *Registry) RecordReport(ctx context.Context, runID string, rep *Report) error {
	return r.update(ctx, runID, func(rec *RunRecord) { rec.Report = rep })
}

// List 返回全部运行登记，按创建时间升序
func (r *Registry) List(ctx context.Context) ([]*RunRecord, error) {
	keys, err := r.store.Keys(ctx, r.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*RunRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := r.Get(ctx, k[len(r.prefix):])
		if err != nil {
			if errors.Is(err, core.ErrStoreNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// LatestModel 返回最近一次登记了模型的运行；没有时返回 core.ErrStoreNotFound
func (r *Registry) LatestModel(ctx context.Context) (*RunRecord, error) {
	runs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Model != nil {
			return runs[i], nil
		}
	}
	return nil, core.ErrStoreNotFound
}
