// Package testutil 提供测试用的合成红酒数据集。
package testutil

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/winekit/core"
)

// WineRows 生成 n 行与 winequality-red.csv 同列的合成数据（最后一列为 quality）。
// quality 与 alcohol、volatile acidity、sulphates 相关，便于回归模型学到信号。
func WineRows(n int, seed int64) [][]float64 {
	rnd := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		alcohol := 8.4 + rnd.Float64()*6.5
		volatile := 0.12 + rnd.Float64()*1.4
		sulphates := 0.33 + rnd.Float64()*1.6
		q := 5.6 + 0.55*(alcohol-10.4) - 1.2*(volatile-0.53) + 0.6*(sulphates-0.66) + rnd.NormFloat64()*0.3
		quality := math.Max(3, math.Min(8, math.Round(q)))
		rows[i] = []float64{
			4.6 + rnd.Float64()*11.3,  // fixed acidity
			volatile,                  // volatile acidity
			rnd.Float64(),             // citric acid
			0.9 + rnd.Float64()*14.6,  // residual sugar
			0.012 + rnd.Float64()*0.6, // chlorides
			1 + rnd.Float64()*71,      // free sulfur dioxide
			6 + rnd.Float64()*283,     // total sulfur dioxide
			0.990 + rnd.Float64()*0.014,
			2.74 + rnd.Float64()*1.27, // pH
			sulphates,
			alcohol,
			quality,
		}
	}
	return rows
}

// WineCSV 把合成数据格式化为带表头、分号分隔的 CSV。
func WineCSV(rows [][]float64) []byte {
	var buf bytes.Buffer
	s := core.WineQualitySchema()
	names := append(s.FeatureNames(), s.Target.Name)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	buf.WriteString(strings.Join(quoted, ";"))
	buf.WriteByte('\n')
	for _, r := range rows {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = fmt.Sprintf("%g", v)
		}
		buf.WriteString(strings.Join(cells, ";"))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteWineCSV 在 dir 下写出 winequality-red.csv 并返回路径。
func WriteWineCSV(t testing.TB, dir string, n int, seed int64) string {
	t.Helper()
	path := filepath.Join(dir, "winequality-red.csv")
	if err := os.WriteFile(path, WineCSV(WineRows(n, seed)), 0o644); err != nil {
		t.Fatalf("write wine csv: %v", err)
	}
	return path
}
