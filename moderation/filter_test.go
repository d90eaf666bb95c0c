package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Filter_Masks_Listed_Words(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger", "heck"}, '*')
	req.NoError(err)

	req.Equal("what the ****", filter.Apply("what the heck"))
	req.Equal("a ****** ate my lunch", filter.Apply("a badger ate my lunch"))
}

func Test_Filter_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"heck"}, '*')
	req.NoError(err)

	req.Equal("****", filter.Apply("HECK"))
	req.Equal("****", filter.Apply("HeCk"))
}

func Test_Filter_Catches_Split_Spellings(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"heck"}, '*')
	req.NoError(err)

	// Punctuation inside the word does not hide it; the whole span is masked.
	req.Equal("*******", filter.Apply("h.e.c.k"))
	req.Equal("*******", filter.Apply("h e c k"))
}

func Test_Filter_Leaves_Clean_Text_Alone(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"heck"}, '*')
	req.NoError(err)

	input := "perfectly fine message"
	req.Equal(input, filter.Apply(input))
}

func Test_Filter_Disabled_With_Empty_Word_List(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter(nil, '*')
	req.NoError(err)

	input := "anything goes here"
	req.Equal(input, filter.Apply(input))
}
