package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/core"
)

// ReadOptions 控制原始表的解析方式。
type ReadOptions struct {
	// Delimiter 字段分隔符，默认 ';'（winequality-red.csv 的格式）
	Delimiter rune
}

// DefaultReadOptions 返回原始红酒数据集的解析参数。
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Delimiter: ';'}
}

// ReadRaw 读取带表头的原始表，按 Schema 中的列名取出特征列和目标列。
//
// 表头中多余的列会被忽略；Schema 中声明而表头中不存在的列、无法解析为数值的单元格、
// 列数不一致的行都会直接返回错误。
func ReadRaw(path string, schema *core.Schema, opts ReadOptions) (*Frame, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	} else {
		r.Comma = ';'
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, core.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("%s: column %q not in header: %w", path, name, core.ErrInvalidInput)
		}
		return i, nil
	}
	featureIdx := make([]int, len(schema.Features))
	for j, c := range schema.Features {
		if featureIdx[j], err = lookup(c.Name); err != nil {
			return nil, err
		}
	}
	targetIdx, err := lookup(schema.Target.Name)
	if err != nil {
		return nil, err
	}

	p := len(featureIdx)
	var (
		data []float64
		y    []float64
	)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for _, src := range featureIdx {
			v, err := parseCell(rec[src])
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %q: %w", path, line, header[src], err)
			}
			data = append(data, v)
		}
		v, err := parseCell(rec[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d column %q: %w", path, line, header[targetIdx], err)
		}
		y = append(y, v)
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("%s: %w", path, core.ErrEmptyDataset)
	}
	return &Frame{Schema: schema, X: mat.NewDense(len(y), p, data), Y: y}, nil
}

// ReadMatrix 读取无表头的数值表（特征表）。
func ReadMatrix(path string) (*mat.Dense, error) {
	rows, width, err := readNumeric(path)
	if err != nil {
		return nil, err
	}
	data := make([]float64, 0, len(rows)*width)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), width, data), nil
}

// ReadVector 读取无表头的单列数值表（标签表）。
func ReadVector(path string) ([]float64, error) {
	rows, width, err := readNumeric(path)
	if err != nil {
		return nil, err
	}
	if width != 1 {
		return nil, fmt.Errorf("%s: label table has %d columns, want 1: %w", path, width, core.ErrShapeMismatch)
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out, nil
}

func readNumeric(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	var (
		rows  [][]float64
		width int
	)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", path, err)
		}
		row := make([]float64, len(rec))
		for j, s := range rec {
			if row[j], err = parseCell(s); err != nil {
				return nil, 0, fmt.Errorf("%s line %d column %d: %w", path, line, j+1, err)
			}
		}
		width = len(rec)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", path, core.ErrEmptyDataset)
	}
	return rows, width, nil
}

func parseCell(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return v, nil
}

// WriteMatrix 以无表头、无索引的 CSV 写出矩阵。
// bitSize 为 32 时按 float32 精度输出（数值先舍入到 float32）。
func WriteMatrix(w io.Writer, m mat.Matrix, bitSize int) error {
	r, c := m.Dims()
	bw := bufio.NewWriter(w)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(FormatFloat(m.At(i, j), bitSize))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteVector 以单列 CSV 写出向量。
func WriteVector(w io.Writer, v []float64) error {
	bw := bufio.NewWriter(w)
	for _, x := range v {
		bw.WriteString(FormatFloat(x, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FormatFloat 输出最短可往返的十进制表示，保证重复运行结果逐字节一致。
func FormatFloat(v float64, bitSize int) string {
	if bitSize == 32 {
		return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
