package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境：唯一的变量是 row（列名 → 数值）
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.CrossTypeNumericComparisons(true),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// RowFilter 是行过滤表达式，使用 CEL (Common Expression Language) 实现。
// 表达式在创建时编译一次，之后可以对任意多行求值，并发安全。
//
// 表达式语法（CEL 标准语法）：
//   - 字段访问：row.alcohol > 8.5
//   - 列名带空格：row["fixed acidity"] < 12
//   - 逻辑：row.pH >= 3.0 && row.quality != 3
//   - 存在性："sulphates" in row
//
// 访问不存在的列会在求值时报错。
type RowFilter struct {
	expr string
	prg  cel.Program
}

// CompileRowFilter 编译过滤表达式。空表达式返回 nil，表示不过滤。
func CompileRowFilter(expr string) (*RowFilter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &RowFilter{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式
func (f *RowFilter) Expr() string { return f.expr }

// Match 对一行求值，返回是否保留该行
func (f *RowFilter) Match(row map[string]float64) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{"row": row})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", f.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}
