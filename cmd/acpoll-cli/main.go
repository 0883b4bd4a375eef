package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

const (
	localNodeHost = "127.0.0.1"
	localNodePort = 9191
)

var (
	nodeURL        = flag.String("node", "", "node API endpoint (if empty, a local in-memory node is started)")
	localBlockTime = flag.Duration("blocktime", time.Second, "block time of the local node")
	signupPeriod   = flag.Uint64("signup", 10, "signup period in blocks")
	votingPeriod   = flag.Uint64("voting", 10, "voting period in blocks")
	votersCount    = flag.Int("voters", 6, "number of participants to register, each submits one interaction")
	tallies        = flag.UintSlice("tallies", []uint{2, 3, 1}, "claimed tally of every vote option")
	coordinatorKey = flag.String("key", "", "hex private key of the coordinator account (random if empty)")
	testTimeout    = flag.Duration("timeout", 5*time.Minute, "timeout for the whole run")
	logLevel       = flag.StringP("log.level", "l", "info", "log level (debug, info, warn, error, fatal)")
)

func main() {
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	ctx, cancel := context.WithTimeout(context.Background(), *testTimeout)
	defer cancel()

	endpoint := *nodeURL
	if endpoint == "" {
		node, err := startLocalNode(ctx, *localBlockTime)
		if err != nil {
			log.Fatalf("failed to start local node: %v", err)
		}
		defer node.Stop()
		endpoint = node.URL()
	}

	cli, err := NewCLI(ctx, endpoint, *coordinatorKey)
	if err != nil {
		log.Fatalf("failed to connect to node: %v", err)
	}

	config := demoPollConfig(len(*tallies))
	config.SignupPeriod = types.BlockNumber(*signupPeriod)
	config.VotingPeriod = types.BlockNumber(*votingPeriod)

	claimed := make([]uint32, len(*tallies))
	for i, t := range *tallies {
		claimed[i] = uint32(t)
	}
	if err := cli.Run(config, *votersCount, claimed); err != nil {
		log.Errorw(err, "poll run failed")
		return
	}
	log.Infow("poll run completed")
}

func demoPollConfig(options int) types.PollConfig {
	voteOptions := make([]types.VoteOption, options)
	for i := range voteOptions {
		voteOptions[i] = types.VoteOption{Label: fmt.Sprintf("option %d", i)}
	}
	return types.PollConfig{
		VoteOptions:           voteOptions,
		VoteOptionTreeDepth:   2,
		ProcessSubtreeDepth:   1,
		TallySubtreeDepth:     1,
		RegistrationTreeDepth: 3,
		InteractionTreeDepth:  3,
		MaxRegistrations:      125,
		MaxInteractions:       125,
	}
}
