package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rushteam/winekit/core"
)

// Split 是一次训练/测试切分的行下标，两部分互不相交且覆盖全部行。
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit 以固定种子随机切分 n 行。
//
// 测试集行数为 ceil(testRatio * n)，其余为训练集；两部分都必须非空。
// 相同的 n、testRatio、seed 总是得到相同的切分。
func TrainTestSplit(n int, testRatio float64, seed int64) (*Split, error) {
	if testRatio <= 0 || testRatio >= 1 || math.IsNaN(testRatio) {
		return nil, fmt.Errorf("test ratio %v not in (0, 1): %w", testRatio, core.ErrInvalidInput)
	}
	nTest := int(math.Ceil(testRatio * float64(n)))
	nTrain := n - nTest
	if nTest <= 0 || nTrain <= 0 {
		return nil, fmt.Errorf("ratio %v over %d rows leaves an empty partition: %w", testRatio, n, core.ErrInvalidInput)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return &Split{
		Test:  perm[:nTest],
		Train: perm[nTest:],
	}, nil
}

// Fold 是 K 折交叉验证中的一折。
type Fold struct {
	Train []int
	Test  []int
}

// KFold 把 n 行按顺序（不打乱）切成 k 折，前 n%k 折各多一行。
// 第 i 折以第 i 段为验证集，其余行为训练集。
func KFold(n, k int) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("cannot make %d folds over %d rows: %w", k, n, core.ErrInvalidInput)
	}
	folds := make([]Fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		stop := start + size
		f := Fold{
			Test:  make([]int, 0, size),
			Train: make([]int, 0, n-size),
		}
		for j := 0; j < n; j++ {
			if j >= start && j < stop {
				f.Test = append(f.Test, j)
			} else {
				f.Train = append(f.Train, j)
			}
		}
		folds = append(folds, f)
		start = stop
	}
	return folds, nil
}
