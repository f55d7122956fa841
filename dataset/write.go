package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TableFile 是一次待写出的表：目标路径 + 写入函数。
type TableFile struct {
	Path  string
	Write func(w io.Writer) error
}

// WriteAll 把一组表写入各自的目标路径，要么全部写出，要么一个都不落地。
//
// 每张表先写到同目录下的临时文件；全部写好后逐个换入：已存在的目标先挪到备份名，
// 再把临时文件 rename 过去。任何一步失败都按相反顺序撤销已换入的表、恢复备份，
// 并清理临时文件，目标路径保持调用前的样子。目标目录需事先存在，目标不能是目录。
func WriteAll(files []TableFile) (err error) {
	temps := make([]string, 0, len(files))
	defer func() {
		if err == nil {
			return
		}
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}()

	for _, tf := range files {
		tmp, err := writeTemp(tf)
		if err != nil {
			return err
		}
		temps = append(temps, tmp)
	}

	swaps := make([]swap, 0, len(files))
	for i, tf := range files {
		s, err := swapIn(temps[i], tf.Path)
		if err != nil {
			rollback(swaps)
			return err
		}
		swaps = append(swaps, s)
	}
	for _, s := range swaps {
		if s.backup != "" {
			_ = os.Remove(s.backup)
		}
	}
	return nil
}

// swap 记录一次换入：目标路径与其原文件的备份（原来不存在时为空）
type swap struct {
	target string
	backup string
}

func swapIn(tmp, target string) (swap, error) {
	s := swap{target: target}
	fi, err := os.Lstat(target)
	switch {
	case err == nil && fi.IsDir():
		return s, fmt.Errorf("move %s into place: target is a directory", target)
	case err == nil:
		s.backup = tmp + ".bak"
		if err := os.Rename(target, s.backup); err != nil {
			return s, fmt.Errorf("back up %s: %w", target, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return s, fmt.Errorf("stat %s: %w", target, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		if s.backup != "" {
			_ = os.Rename(s.backup, target)
		}
		return s, fmt.Errorf("move %s into place: %w", target, err)
	}
	return s, nil
}

func rollback(swaps []swap) {
	for i := len(swaps) - 1; i >= 0; i-- {
		s := swaps[i]
		_ = os.Remove(s.target)
		if s.backup != "" {
			_ = os.Rename(s.backup, s.target)
		}
	}
}

func writeTemp(tf TableFile) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(tf.Path), "."+filepath.Base(tf.Path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tf.Path, err)
	}
	werr := tf.Write(f)
	cerr := f.Close()
	merr := os.Chmod(f.Name(), 0o644)
	if err := errors.Join(werr, cerr, merr); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", tf.Path, err)
	}
	return f.Name(), nil
}

// EnsureDirs 创建输出目录；目录已存在不视为错误。
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return nil
}
