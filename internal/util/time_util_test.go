package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	t.Run("inclusive of both endpoints", func(t *testing.T) {
		days := DaysBetween(NewDate(2023, 6, 1), NewDate(2023, 6, 3))
		require.Len(t, days, 3)
		require.Equal(t, NewDate(2023, 6, 1), days[0])
		require.Equal(t, NewDate(2023, 6, 3), days[2])
	})

	t.Run("single day", func(t *testing.T) {
		days := DaysBetween(NewDate(2023, 6, 1), NewDate(2023, 6, 1))
		require.Len(t, days, 1)
	})

	t.Run("crosses month boundary", func(t *testing.T) {
		days := DaysBetween(NewDate(2023, 6, 29), NewDate(2023, 7, 2))
		require.Len(t, days, 4)
	})
}

func TestMidnight(t *testing.T) {
	in := time.Date(2023, 6, 1, 15, 30, 45, 123, time.UTC)
	require.Equal(t, NewDate(2023, 6, 1), Midnight(in))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-06-01")
	require.NoError(t, err)
	require.Equal(t, NewDate(2023, 6, 1), d)

	_, err = ParseDate("06/01/2023")
	require.Error(t, err)
}
