package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/api/client"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/crypto/signatures/ethereum"
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/db/metadb"
	"github.com/vocdoni/acpoll/finalizer"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

const heightPollInterval = 500 * time.Millisecond

// LocalNode is an in-memory node serving the API on localhost.
type LocalNode struct {
	storage   *storage.Storage
	chain     *chain.Local
	finalizer *finalizer.Finalizer
	cancel    context.CancelFunc
	done      chan error
}

func startLocalNode(ctx context.Context, blockTime time.Duration) (*LocalNode, error) {
	database, err := metadb.New(db.TypeInMem, "")
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	n := &LocalNode{
		storage: storage.New(database),
		chain:   chain.NewLocal(blockTime, 1),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	// The CLI submits placeholder proofs, so the local node only checks their shape.
	log.Warnw("local node does not verify batch proofs", "verifier", "shape")
	svc := service.New(service.DefaultConfig(), n.storage, n.chain, service.ShapeVerifier{}, nil)
	n.finalizer = finalizer.New(svc)
	n.finalizer.Start(ctx, 0, n.chain.Subscribe())

	a, err := api.New(&api.APIConfig{
		Host:              localNodeHost,
		Port:              localNodePort,
		Service:           svc,
		RequireSignatures: true,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	go func() { n.done <- a.ListenAndServe(ctx) }()
	n.chain.Start(ctx)
	log.Infow("local node started", "url", n.URL(), "blockTime", blockTime.String())
	return n, nil
}

// URL returns the API endpoint of the node.
func (n *LocalNode) URL() string {
	return "http://" + net.JoinHostPort(localNodeHost, strconv.Itoa(localNodePort))
}

// Stop shuts the node down.
func (n *LocalNode) Stop() {
	n.cancel()
	if err := <-n.done; err != nil {
		log.Warnw("local node API stopped with error", "error", err.Error())
	}
	n.chain.Stop()
	n.finalizer.Close()
	n.storage.Close()
}

// CLI drives a poll through its whole lifecycle against a node.
type CLI struct {
	ctx         context.Context
	cli         *client.HTTPclient
	coordinator *client.HTTPclient
}

// NewCLI connects to the node at endpoint, retrying while it starts. The
// coordinator signs with hexKey, or with a random key when it is empty.
func NewCLI(ctx context.Context, endpoint, hexKey string) (*CLI, error) {
	var (
		cli    *client.HTTPclient
		signer *ethereum.Signer
		err    error
	)
	if hexKey != "" {
		signer, err = ethereum.NewSignerFromHex(hexKey)
	} else {
		signer, err = ethereum.NewSigner()
	}
	if err != nil {
		return nil, fmt.Errorf("coordinator key: %w", err)
	}
	for {
		if cli, err = client.New(endpoint); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("node %s unreachable: %w", endpoint, err)
		case <-time.After(heightPollInterval):
		}
	}
	return &CLI{
		ctx:         ctx,
		cli:         cli,
		coordinator: cli.WithSigner(signer),
	}, nil
}

// participant returns a client signing as a fresh account.
func (s *CLI) participant() (*client.HTTPclient, error) {
	signer, err := ethereum.NewSigner()
	if err != nil {
		return nil, err
	}
	return s.cli.WithSigner(signer), nil
}

// Run registers a coordinator, creates a poll, registers voters that submit
// one interaction each, waits for the poll to be merged and proves it with
// placeholder proofs before submitting the claimed tallies as outcome.
func (s *CLI) Run(config types.PollConfig, voters int, tallies []uint32) error {
	coordinatorKey := babyjub.NewRandPrivKey()
	if err := s.coordinator.RegisterCoordinator(
		types.PublicKeyFromPoint(coordinatorKey.Public().Point()), testutil.VerifyKey()); err != nil {
		return fmt.Errorf("failed to register coordinator: %w", err)
	}
	log.Infow("coordinator registered", "address", s.coordinator.Account().Hex())

	p, err := s.coordinator.CreatePoll(config)
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}
	log.Infow("poll created",
		"poll", p.Index,
		"signupEnd", p.SignupPeriodEnd,
		"votingEnd", p.VotingPeriodEnd)

	keys := make([]types.PublicKey, voters)
	for i := range keys {
		voter, err := s.participant()
		if err != nil {
			return err
		}
		priv := babyjub.NewRandPrivKey()
		keys[i] = types.PublicKeyFromPoint(priv.Public().Point())
		count, err := voter.Register(p.Index, keys[i])
		if err != nil {
			return fmt.Errorf("failed to register voter %d: %w", i, err)
		}
		log.Debugw("voter registered", "poll", p.Index, "count", count)
	}
	log.Infow("voters registered", "poll", p.Index, "count", voters)

	if err := s.waitHeight(p.SignupPeriodEnd); err != nil {
		return err
	}
	for i, key := range keys {
		var data types.InteractionData
		for j := range data {
			data[j] = types.HashBytesFromUint64(rand.Uint64())
		}
		sender, err := s.participant()
		if err != nil {
			return err
		}
		if _, err := sender.Interact(p.Index, key, data); err != nil {
			return fmt.Errorf("failed to submit interaction %d: %w", i, err)
		}
	}
	log.Infow("interactions submitted", "poll", p.Index, "count", len(keys))

	if err := s.waitMerged(p.Index, p.VotingPeriodEnd); err != nil {
		return err
	}

	outcome, final, err := poll.BuildOutcome(config.VoteOptionTreeDepth, tallies,
		types.HashBytesFromUint64(rand.Uint64()), types.HashBytesFromUint64(rand.Uint64()))
	if err != nil {
		return fmt.Errorf("failed to build outcome: %w", err)
	}
	if err := s.prove(p.Index, final); err != nil {
		return err
	}
	winner, err := s.coordinator.SubmitOutcome(p.Index, outcome)
	if err != nil {
		return fmt.Errorf("failed to submit outcome: %w", err)
	}
	log.Infow("poll fulfilled", "poll", p.Index, "winner", winner, "label", config.VoteOptions[winner].Label)
	return nil
}

// prove submits placeholder proofs until the poll is proven. The last tally
// batch commits to final.
func (s *CLI) prove(id types.PollID, final types.HashBytes) error {
	for step := uint64(1); ; step++ {
		p, err := s.cli.Poll(id)
		if err != nil {
			return err
		}
		if p.Phase == poll.PhaseProven {
			return nil
		}
		cm := p.Commitment
		commitment := types.HashBytesFromUint64(step)
		if cm.Process.Index == cm.ExpectedProcess && cm.Tally.Index+1 == cm.ExpectedTally {
			commitment = final
		}
		inputs, err := s.coordinator.SubmitProof(id, types.HexBytes{0x01}, commitment)
		if err != nil {
			return fmt.Errorf("failed to submit proof %d: %w", step, err)
		}
		log.Infow("proof accepted",
			"poll", id,
			"circuit", inputs.Circuit.String(),
			"process", inputs.Commitment.Process.Index,
			"tally", inputs.Commitment.Tally.Index)
	}
}

func (s *CLI) waitHeight(height types.BlockNumber) error {
	log.Infow("waiting for height", "height", height)
	for {
		current, err := s.cli.Height()
		if err != nil {
			return err
		}
		if current >= height {
			return nil
		}
		select {
		case <-s.ctx.Done():
			return fmt.Errorf("timeout waiting for height %d: %w", height, s.ctx.Err())
		case <-time.After(heightPollInterval):
		}
	}
}

// waitMerged waits for the poll to be merged by the node finalizer, merging
// it explicitly once it is over if the node does not.
func (s *CLI) waitMerged(id types.PollID, end types.BlockNumber) error {
	if err := s.waitHeight(end); err != nil {
		return err
	}
	for {
		p, err := s.cli.Poll(id)
		if err != nil {
			return err
		}
		if p.Phase == poll.PhaseMerged {
			log.Infow("poll merged",
				"poll", id,
				"expectedProcess", p.Commitment.ExpectedProcess,
				"expectedTally", p.Commitment.ExpectedTally)
			return nil
		}
		if p.Phase == poll.PhaseClosed {
			if _, err := s.cli.Merge(id); err != nil && !client.IsCode(err, api.ErrWrongPollPhase) {
				return fmt.Errorf("failed to merge poll: %w", err)
			}
		}
		select {
		case <-s.ctx.Done():
			return fmt.Errorf("timeout waiting for poll %d to be merged: %w", id, s.ctx.Err())
		case <-time.After(heightPollInterval):
		}
	}
}
