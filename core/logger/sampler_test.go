package logger

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":      {0, 0},
		"1/10":  {1, 10},
		" 2/3 ": {2, 3},
		"20":    {1, 20},
		"5%":    {5, 100},
		"250%":  {100, 100},
		"x/2":   {0, 0},
		"-4":    {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		require.Equalf(t, want, [2]int{num, den}, "spec %q", spec)
	}
}

func TestRatioSamplerCycle(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for i := 0; i < 10; i++ {
		got = append(got, s.Allow())
	}
	require.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, got)

	s.Set(0, 0)
	require.True(t, s.Allow())
	require.True(t, s.Allow())
}

func TestAsyncWriterFlushAndClose(t *testing.T) {
	var a, b bytes.Buffer
	w := newAsyncWriter([]io.Writer{&a, nil, &b}, 16)
	require.NoError(t, w.Write([]byte("one\n")))
	require.NoError(t, w.Write([]byte("two\n")))
	require.NoError(t, w.Flush())
	require.Equal(t, "one\ntwo\n", a.String())
	require.Equal(t, a.String(), b.String())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Write([]byte("late\n")), io.ErrClosedPipe)
	require.NoError(t, w.Flush())
}
