package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRowsSkipsEmptyRows(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "IT", Unique: "cat", Data: "1"}, {Text: "Art", Unique: "cat", Data: "2"}},
		nil,
		[]InlineBtn{{Text: "Done", Unique: "cat_done"}},
	)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Equal(t, "cat", markup.InlineKeyboard[0][1].Unique)
	require.Equal(t, "2", markup.InlineKeyboard[0][1].Data)
	require.Equal(t, "cat_done", markup.InlineKeyboard[1][0].Unique)
	require.Empty(t, markup.InlineKeyboard[1][0].Data)
}
