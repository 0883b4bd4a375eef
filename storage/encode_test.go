package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/poll"
)

func TestEncodePoll(t *testing.T) {
	c := qt.New(t)

	p := newTestPoll(c, 1, alice)
	var err error
	for i := range 7 {
		_, p, err = p.RegisterParticipant(2, testCoordinator().PublicKey, uint64(i))
		c.Assert(err, qt.IsNil)
	}
	p, err = p.MergeRegistrations(p.VotingPeriodEnd())
	c.Assert(err, qt.IsNil)

	for _, enc := range []ArtifactEncoding{ArtifactEncodingCBOR, ArtifactEncodingJSON} {
		data, err := EncodeArtifact(p, enc)
		c.Assert(err, qt.IsNil)
		decoded := &poll.Poll{}
		c.Assert(DecodeArtifact(data, decoded, enc), qt.IsNil)
		c.Assert(decoded, qt.DeepEquals, p, qt.Commentf("encoding %d", enc))
	}

	// Core deterministic encoding is stable.
	first, err := EncodeArtifact(p)
	c.Assert(err, qt.IsNil)
	second, err := EncodeArtifact(p.Clone())
	c.Assert(err, qt.IsNil)
	c.Assert(first, qt.DeepEquals, second)

	_, err = EncodeArtifact(p, ArtifactEncoding(9))
	c.Assert(err, qt.ErrorMatches, "unknown artifact encoding: 9")
}
