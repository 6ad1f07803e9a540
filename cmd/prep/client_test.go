package main

import (
	"testing"

	"github.com/saulo-duarte/chronos-prep/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers(" 1, -1,3 ,0")
	require.NoError(t, err)
	assert.Equal(t, []int{1, -1, 3, 0}, got)

	got, err = parseAnswers("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseAnswers("1,b")
	assert.Error(t, err)
}

type fakeSheet struct {
	locked   map[int]bool
	selected map[int]int
}

func (f *fakeSheet) SelectOption(idx, option int) error {
	if idx > 3 {
		return session.ErrOutOfRange
	}
	if f.locked[idx] {
		return session.ErrLocked
	}
	f.selected[idx] = option
	return nil
}

func (f *fakeSheet) LockAnswer(idx int) (bool, error) {
	f.locked[idx] = true
	return true, nil
}

func TestApplyAnswers(t *testing.T) {
	t.Run("skips restored locks", func(t *testing.T) {
		sheet := &fakeSheet{locked: map[int]bool{1: true}, selected: map[int]int{}}
		require.NoError(t, applyAnswers(sheet, []int{2, 0, -1, 3}, true))
		assert.Equal(t, map[int]int{0: 2, 3: 3}, sheet.selected)
		assert.Equal(t, map[int]bool{0: true, 1: true, 3: true}, sheet.locked)
	})

	t.Run("reports other failures", func(t *testing.T) {
		sheet := &fakeSheet{locked: map[int]bool{}, selected: map[int]int{}}
		err := applyAnswers(sheet, []int{0, 0, 0, 0, 1}, false)
		assert.ErrorIs(t, err, session.ErrOutOfRange)
		assert.Contains(t, err.Error(), "question 5")
	})
}
