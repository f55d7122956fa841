package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsByModuleAndCode(t *testing.T) {
	missingColumn := fmt.Errorf("column missing: %w", ErrInvalidInput)
	assert.ErrorIs(t, missingColumn, ErrInvalidInput)
	assert.False(t, errors.Is(missingColumn, ErrEmptyDataset))
	assert.False(t, errors.Is(fmt.Errorf("no rows: %w", ErrEmptyDataset), ErrInvalidInput))

	// 同一代码、不同模块的哨兵互不匹配
	for _, pair := range [][2]error{
		{ErrInvalidInput, ErrInvalidConfig},
		{ErrInvalidInput, ErrInvalidParam},
		{ErrInvalidInput, ErrInvalidRequest},
		{ErrInvalidConfig, ErrInvalidRequest},
		{ErrShapeMismatch, ErrNotFitted},
	} {
		assert.False(t, errors.Is(pair[0], pair[1]), "%v vs %v", pair[0], pair[1])
	}

	same := NewDomainError(ModuleDataset, ErrorCodeEmptyDataset, "other message")
	assert.ErrorIs(t, same, ErrEmptyDataset)
}

func TestDomainError_CodeHelpers(t *testing.T) {
	for _, err := range []error{ErrInvalidInput, ErrInvalidConfig, ErrInvalidParam, ErrInvalidRequest} {
		wrapped := fmt.Errorf("ctx: %w", err)
		assert.True(t, IsInvalidInput(wrapped), err.Error())
		assert.False(t, IsEmptyDataset(wrapped), err.Error())
	}

	empty := fmt.Errorf("train.csv: %w", ErrEmptyDataset)
	assert.True(t, IsEmptyDataset(empty))
	assert.False(t, IsInvalidInput(empty))
	assert.True(t, IsShapeMismatch(fmt.Errorf("x: %w", ErrShapeMismatch)))
	assert.True(t, IsNotFound(ErrStoreNotFound))
	assert.True(t, IsNotSupported(ErrStoreNotSupported))
	assert.False(t, IsUnavailable(errors.New("plain")))
	assert.False(t, IsDomainError(nil))

	assert.Equal(t, "service: invalid request", ErrInvalidRequest.Error())
	assert.Equal(t, ModuleConfig, GetDomainError(fmt.Errorf("x: %w", ErrInvalidConfig)).Module)
}

func TestRunContext_OrDefault(t *testing.T) {
	var rc *RunContext
	got := rc.OrDefault()
	assert.Equal(t, DefaultSeed, got.Seed)
	assert.NotEmpty(t, got.RunID)
	assert.Nil(t, got.Store)
	assert.NotNil(t, rc.Log())

	own := NewRunContext(WithRunID("run-1"), WithSeed(7))
	assert.Same(t, own, own.OrDefault())
}

func TestValidateConfig(t *testing.T) {
	type cfg struct {
		Name  string `validate:"required"`
		Count int    `validate:"gt=0"`
	}
	assert.NoError(t, ValidateConfig(cfg{Name: "a", Count: 1}))

	err := ValidateConfig(cfg{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "cfg.Name: required")
	assert.Contains(t, err.Error(), "cfg.Count: gt=0")
}

func TestRegisterValidation_PanicsOnBadTag(t *testing.T) {
	assert.Panics(t, func() { RegisterValidation("", func(string) bool { return true }) })

	RegisterValidation("wine_color", func(v string) bool { return v == "red" || v == "white" })
	type colored struct {
		Color string `validate:"wine_color"`
	}
	assert.NoError(t, ValidateConfig(colored{Color: "red"}))
	assert.True(t, IsInvalidInput(ValidateConfig(colored{Color: "rose"})))
}
