package db

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPrefixEnd(t *testing.T) {
	c := qt.New(t)

	c.Assert(PrefixEnd([]byte("p/")), qt.DeepEquals, []byte("p0"))
	c.Assert(PrefixEnd([]byte{0x01, 0xff}), qt.DeepEquals, []byte{0x02})
	c.Assert(PrefixEnd([]byte{0xff, 0xff}), qt.IsNil)
	c.Assert(PrefixEnd(nil), qt.IsNil)
}
