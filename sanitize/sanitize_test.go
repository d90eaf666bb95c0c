package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Clean_Keeps_Allowed_Inline_Tags(t *testing.T) {
	req := require.New(t)
	s := New()

	input := "<p>Hello <b>world</b>, <i>nice</i> to <strong>see</strong> <em>you</em></p>"
	req.Equal(input, s.Clean(input))
}

func Test_Clean_Strips_Disallowed_Markup(t *testing.T) {
	req := require.New(t)
	s := New()

	tests := []struct {
		description string
		input       string
		want        string
	}{
		{
			"Script tags are removed entirely",
			`hello <script>alert("x")</script>world`,
			"hello world",
		},
		{
			"Anchors are unwrapped",
			`see <a href="http://evil">this</a>`,
			"see this",
		},
		{
			"Attributes on allowed tags are dropped",
			`<b onclick="steal()">bold</b>`,
			"<b>bold</b>",
		},
		{
			"Images vanish",
			`before <img src="x"> after`,
			"before  after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req.Equal(tt.want, s.Clean(tt.input))
		})
	}
}

func Test_Clean_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	s := New()

	inputs := []string{
		"plain text",
		"<p>Hello <b>world</b></p>",
		`mixed <div><em>content</em></div> with <script>junk</script>`,
		"   padded   ",
		"",
	}
	for _, input := range inputs {
		once := s.Clean(input)
		req.Equal(once, s.Clean(once), "input: %q", input)
	}
}

func Test_Clean_Trims_Whitespace(t *testing.T) {
	req := require.New(t)
	s := New()

	req.Equal("hello", s.Clean("   hello  \n"))
	req.Empty(s.Clean("   \t  "))
}
