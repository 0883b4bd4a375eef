package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/api/client"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/db/metadb"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

func TestArchivePolls(t *testing.T) {
	c := qt.New(t)
	height := chain.NewManual(100)
	svc := service.New(service.DefaultConfig(), storage.New(metadb.NewTest(c)), height, service.ShapeVerifier{}, nil)
	a, err := api.New(&api.APIConfig{Service: svc})
	c.Assert(err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	c.Cleanup(srv.Close)
	cli, err := client.New(srv.URL)
	c.Assert(err, qt.IsNil)

	// Poll 1 is nullified, poll 2 is running.
	alice, bob := testutil.DeterministicAddress(1), testutil.DeterministicAddress(2)
	for _, who := range []common.Address{alice, bob} {
		c.Assert(svc.RegisterCoordinator(who, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
		_, err := svc.CreatePoll(who, testutil.PollConfig())
		c.Assert(err, qt.IsNil)
	}
	c.Assert(svc.Nullify(1, alice), qt.IsNil)

	archiver := &Archiver{cli: cli, destination: c.TempDir()}
	index, err := archiver.ArchivePolls(context.Background(), false)
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.HasLen, 1)
	c.Assert(index[0].Poll, qt.Equals, types.PollID(1))
	c.Assert(index[0].Phase, qt.Equals, poll.PhaseNullified)

	data, err := os.ReadFile(filepath.Join(archiver.destination, index[0].File))
	c.Assert(err, qt.IsNil)
	sum := sha256.Sum256(data)
	c.Assert(index[0].SHA256, qt.Equals, hex.EncodeToString(sum[:]))

	index, err = archiver.ArchivePolls(context.Background(), true)
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.HasLen, 2)
}
