package dump

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestLookupCharset(t *testing.T) {
	t.Run("utf8_by_default_name", func(t *testing.T) {
		c, err := LookupCharset("UTF-8")
		require.NoError(t, err)
		require.True(t, c.IsUTF8())
		require.Equal(t, "UTF-8", c.Name)

		b, err := c.Encode([]byte("Æble"))
		require.NoError(t, err)
		require.Equal(t, "Æble", string(b))
	})

	t.Run("latin1", func(t *testing.T) {
		c, err := LookupCharset("ISO-8859-1")
		require.NoError(t, err)
		require.False(t, c.IsUTF8())
		require.Equal(t, charmap.ISO8859_1, c.Encoding)
		require.Equal(t, "ISO-8859-1", c.Name)

		b, err := c.Encode([]byte("Æble"))
		require.NoError(t, err)
		require.Equal(t, []byte{0xC6, 'b', 'l', 'e'}, b)
	})

	t.Run("danmarc2_is_case_insensitive", func(t *testing.T) {
		c, err := LookupCharset("danmarc2")
		require.NoError(t, err)
		require.Equal(t, DanMARC2, c.Name)
		require.False(t, c.IsUTF8())
	})

	t.Run("utf16_byte_order_mark_is_kept_apart", func(t *testing.T) {
		c, err := LookupCharset("UTF-16")
		require.NoError(t, err)
		require.Equal(t, "UTF-16", c.Name)
		require.Equal(t, []byte{0xFE, 0xFF}, c.BOM)
		require.Equal(t, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), c.Encoding)

		b, err := c.Encode([]byte("<a>"))
		require.NoError(t, err)
		require.Equal(t, []byte{0x00, '<', 0x00, 'a', 0x00, '>'}, b)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := LookupCharset("no-such-charset")
		require.EqualError(t, err, "unknown encoding 'no-such-charset'")
	})
}

func TestDanMARC2(t *testing.T) {
	c, err := LookupCharset(DanMARC2)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		encoded string
	}{
		{name: "ascii", input: "Hansen, Jens", encoded: "Hansen, Jens"},
		{name: "at_sign", input: "a@b", encoded: "a@@b"},
		{name: "latin", input: "Æble på øen", encoded: "@00C6ble p@00E5 @00F8en"},
		{name: "outside_bmp", input: "𝄞", encoded: "@D834@DD1E"},
		{name: "empty", input: "", encoded: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := c.Encode([]byte(test.input))
			require.NoError(t, err)
			require.Equal(t, test.encoded, string(encoded))

			decoded, err := c.Encoding.NewDecoder().String(test.encoded)
			require.NoError(t, err)
			require.Equal(t, test.input, decoded)
		})
	}

	t.Run("decode_keeps_lone_at_sign", func(t *testing.T) {
		decoded, err := c.Encoding.NewDecoder().String("mail@xyz")
		require.NoError(t, err)
		require.Equal(t, "mail@xyz", decoded)
	})

	t.Run("decode_replaces_unpaired_surrogate", func(t *testing.T) {
		decoded, err := c.Encoding.NewDecoder().String("@D834x")
		require.NoError(t, err)
		require.Equal(t, "�x", decoded)
	})

	t.Run("lower_case_hex", func(t *testing.T) {
		decoded, err := c.Encoding.NewDecoder().String("@00e5")
		require.NoError(t, err)
		require.Equal(t, "å", decoded)
	})
}

func TestASCIICompatible(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"UTF-8", true},
		{"ISO-8859-1", true},
		{DanMARC2, true},
		{"UTF-16", false},
		{"UTF-16LE", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := LookupCharset(test.name)
			require.NoError(t, err)
			require.Equal(t, test.expected, c.ASCIICompatible())
		})
	}
}
