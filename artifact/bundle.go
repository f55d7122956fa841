// Package artifact 负责训练产物的打包与登记：
//
//   - model.tar.gz 模型包（Pack / Unpack）
//   - evaluation.json 评估报告（Report）
//   - 运行登记（Registry，基于 core.Store）
package artifact

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rushteam/winekit/core"
)

// BundleFileName 是模型包的默认文件名
const BundleFileName = "model.tar.gz"

// ErrUnsafePath 表示模型包中的条目试图写到解包目录之外
var ErrUnsafePath = core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInvalidInput, "artifact: entry escapes destination")

// Pack 把 srcDir 下的 names 文件打成 gzip 压缩的 tar 包，写到 dest。
//
// 条目按 names 的顺序写入，修改时间与属主统一清零，同样的输入得到同样的字节。
// 先写临时文件再 rename，失败时不会留下半个包。
func Pack(ctx context.Context, dest, srcDir string, names ...string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".bundle-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := addFile(tw, filepath.Join(srcDir, name), name); err != nil {
			return fmt.Errorf("pack %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func addFile(tw *tar.Writer, fullpath, name string) error {
	fi, err := os.Stat(fullpath)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", fullpath)
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	hdr.ModTime = time.Unix(0, 0)
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	fp, err := os.Open(fullpath)
	if err != nil {
		return err
	}
	defer fp.Close()
	_, err = io.Copy(tw, fp)
	return err
}

// Unpack 把 gzip 压缩的 tar 包 src 解到 destDir，返回解出的文件名（相对路径）。
//
// 只解普通文件和目录；绝对路径或包含 ".." 逃逸到 destDir 之外的条目返回 ErrUnsafePath。
func Unpack(ctx context.Context, src, destDir string) ([]string, error) {
	fp, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	gz, err := gzip.NewReader(fp)
	if err != nil {
		return nil, fmt.Errorf("open bundle %s: %w", src, err)
	}
	defer gz.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	var names []string
	tr := tar.NewReader(gz)
	for {
		select {
		case <-ctx.Done():
			return names, ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return names, fmt.Errorf("read bundle %s: %w", src, err)
		}
		if hdr.Name == "" {
			continue
		}

		fullpath, err := safeJoin(root, hdr.Name)
		if err != nil {
			return names, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fullpath, 0o755); err != nil {
				return names, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(fullpath), 0o755); err != nil {
				return names, err
			}
			if err := writeEntry(fullpath, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return names, err
			}
			names = append(names, filepath.ToSlash(filepath.Clean(hdr.Name)))
		default:
			// 符号链接等其他类型一律跳过
		}
	}
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	full := filepath.Join(root, name)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	return full, nil
}

func writeEntry(path string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	fp, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fp, r); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
