package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/model"
)

// LoadModel 加载模型：.tar.gz / .tgz 先解到临时目录再读取其中的 model.json，
// 其他路径按模型文件直接读取。临时目录在返回前删除。
func LoadModel(ctx context.Context, path string) (*model.Artifact, error) {
	if !IsBundle(path) {
		return model.Load(path)
	}
	tmp, err := os.MkdirTemp("", "winekit-model-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	names, err := Unpack(ctx, path, tmp)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if filepath.Base(name) == model.FileName {
			return model.Load(filepath.Join(tmp, filepath.FromSlash(name)))
		}
	}
	return nil, core.NewDomainError(core.ModuleArtifact, core.ErrorCodeNotFound,
		fmt.Sprintf("artifact: %s has no %s", path, model.FileName))
}

// IsBundle 按扩展名判断是否为模型包
func IsBundle(path string) bool {
	return strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz")
}
