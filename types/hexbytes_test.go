package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytes(t *testing.T) {
	c := qt.New(t)

	c.Run("String", func(c *qt.C) {
		c.Assert(HexBytes{0x0a, 0xff}.String(), qt.Equals, "0x0aff")
		c.Assert(HexBytes{}.String(), qt.Equals, "0x")
	})

	c.Run("BigInt", func(c *qt.C) {
		c.Assert(HexBytes{}.BigInt().String(), qt.Equals, "0")
		c.Assert(HexBytes{0x01, 0x00}.BigInt().String(), qt.Equals, "256")
		c.Assert(HexBytes{0x00, 0x00, 0x02}.BigInt().String(), qt.Equals, "2")
	})

	c.Run("LeftPad", func(c *qt.C) {
		in := HexBytes{0x01, 0x02}
		out := in.LeftPad(4)
		c.Assert(out, qt.DeepEquals, HexBytes{0x00, 0x00, 0x01, 0x02})
		c.Assert(in.LeftPad(1), qt.DeepEquals, in)
		out[3] = 0xFF
		c.Assert(in[1], qt.Equals, byte(0x02))
	})

	c.Run("JSON", func(c *qt.C) {
		b, err := json.Marshal(HexBytes{0xDE, 0xAD, 0xBE, 0xEF})
		c.Assert(err, qt.IsNil)
		c.Assert(string(b), qt.Equals, `"0xdeadbeef"`)

		var hb HexBytes
		c.Assert(json.Unmarshal([]byte(`"0Xdeadbeef"`), &hb), qt.IsNil)
		c.Assert(hb, qt.DeepEquals, HexBytes{0xDE, 0xAD, 0xBE, 0xEF})
		c.Assert(json.Unmarshal([]byte(`"deadbeef"`), &hb), qt.IsNil)
		c.Assert(hb, qt.DeepEquals, HexBytes{0xDE, 0xAD, 0xBE, 0xEF})

		c.Assert(json.Unmarshal([]byte(`123`), &hb), qt.ErrorMatches, `invalid JSON string: "123"`)
		c.Assert(json.Unmarshal([]byte(`"0x0"`), &hb), qt.ErrorMatches, `encoding/hex: odd length hex string`)
	})

	c.Run("HexStringToHexBytes", func(c *qt.C) {
		b, err := HexStringToHexBytes("0xdeadbeef")
		c.Assert(err, qt.IsNil)
		c.Assert(b, qt.DeepEquals, HexBytes{0xDE, 0xAD, 0xBE, 0xEF})
		_, err = HexStringToHexBytes("0xzz")
		c.Assert(err, qt.ErrorMatches, `invalid hex string "zz": .*`)
	})
}
